package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	vocabularystore "github.com/bnema/oabot/internal/adapters/vocabulary"
	"github.com/bnema/oabot/internal/config"
	"github.com/bnema/oabot/internal/domain"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialise oabot configuration",
	}

	cmd.AddCommand(
		newConfigInitCmd(app),
		newConfigShowCmd(app),
		newConfigVocabularyCmd(app),
	)

	return cmd
}

func newConfigInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration and default vocabulary files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := refuseOverwrite(app.config.File, force); err != nil {
				return err
			}
			if err := config.Write(app.config.File, app.config); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", app.config.File)

			vocabularyFile := app.config.Control.VocabularyFile
			if vocabularyFile == "" {
				return nil
			}
			if err := refuseOverwrite(vocabularyFile, force); err != nil {
				if errors.Is(err, errFileExists) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "kept %s\n", vocabularyFile)
					return nil
				}
				return err
			}
			if err := vocabularystore.Write(vocabularyFile, domain.DefaultVocabulary()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", vocabularyFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Encode(app.config, showSecrets)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", app.config.File)
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the Discord token instead of redacting it")

	return cmd
}

func newConfigVocabularyCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vocabulary",
		Short: "List the control-channel commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vocabulary, err := vocabularystore.Read(app.config.Control.VocabularyFile)
			if err != nil {
				return err
			}

			for _, word := range vocabulary.Words() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", word, vocabulary[word])
			}
			return nil
		},
	}
}

var errFileExists = errors.New("file already exists")

func refuseOverwrite(path string, force bool) error {
	if force {
		return nil
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s (use --force to overwrite)", errFileExists, path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat %s: %w", path, err)
	}
}
