package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/oabot/internal/adapters/fifo"
	vocabularystore "github.com/bnema/oabot/internal/adapters/vocabulary"
	"github.com/bnema/oabot/internal/application"
	"github.com/spf13/cobra"
)

func newSendCmd(app *app) *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "send <command>",
		Short: "Write a command to the running bot's control channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.TrimSpace(args[0])

			if !force {
				vocabulary, err := vocabularystore.Read(app.config.Control.VocabularyFile)
				if err != nil {
					return err
				}
				if _, ok := application.ParseControlLine(vocabulary, line); !ok {
					return fmt.Errorf("unknown control command %q (known: %s)", line, strings.Join(vocabulary.Words(), ", "))
				}
			}

			if err := fifo.Send(path, line); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent %q to %s\n", line, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", app.config.Control.Path, "Control channel path")
	cmd.Flags().BoolVar(&force, "force", false, "Send even if the command is not in the vocabulary")

	return cmd
}
