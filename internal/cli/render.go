package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/andukdahacker/classlite-sub004/internal/app"
	"github.com/andukdahacker/classlite-sub004/internal/preview"
	"github.com/andukdahacker/classlite-sub004/internal/review"
)

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [bundle]",
		Short: "Preview a review bundle in the terminal",
		Long: `Validate the anchors of a review bundle (JSON or YAML) and print the
segmented text and the feedback cards. Reads stdin when the bundle is "-" or
omitted.

Examples:
  classlite render essay.yaml
  classlite render --highlight f1 essay.json
  cat essay.yaml | classlite render --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}
	cmd.Flags().String("highlight", "", "annotation id to show as highlighted")
	cmd.Flags().Bool("json", false, "print the view as JSON instead")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	b, err := review.DecodeBundle(in)
	if err != nil {
		return err
	}

	v, err := app.BuildValidator(cfg.Anchor, nil)
	if err != nil {
		return err
	}
	s := review.NewSession("preview", review.WithValidator(v))
	defer s.Close()
	if err := s.Load(cmd.Context(), b.Text, b.Annotations()); err != nil {
		return err
	}
	if id, _ := cmd.Flags().GetString("highlight"); id != "" {
		_, w := s.Highlight()
		w.SetHighlighted(id, false)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.View())
	}
	if err := preview.New(out).Fprint(out, s.View()); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}
