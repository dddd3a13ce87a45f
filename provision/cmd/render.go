package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/repoprov/digester"
	"github.com/byte4ever/repoprov/templating"
)

func newRenderCmd(a *app) *cobra.Command {
	st := &settings{}

	var out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the rendered starter files locally",
		Long: `render writes the files provision would commit into a local
directory, without contacting any host.`,
		Example: `  repoprov render --name demo-app --out ./preview`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			const errCtx = "rendering"

			if err := st.load(cmd); err != nil {
				return err
			}

			files, err := st.engine().Starter(st.starterOptions())
			if err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			if err := templating.WriteFiles(out, files); err != nil {
				return fmt.Errorf("%s: %w", errCtx, err)
			}

			for _, f := range files {
				sha, err := digester.FileBlobSHA(
					filepath.Join(out, filepath.FromSlash(f.Path)),
				)
				if err != nil {
					return fmt.Errorf("%s: %w", errCtx, err)
				}

				subject, _, _ := strings.Cut(f.CommitMessage, "\n")

				fmt.Fprintf(
					a.out, "%s\t%s\t%s\n",
					sha, f.Path, subject,
				)
			}

			return nil
		},
	}

	st.bindTemplateFlags(cmd)
	cmd.Flags().StringVar(&out, "out", ".", "Output directory")

	return cmd
}
