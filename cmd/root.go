package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "oabot",
		Short:         "oabot: move and mute Discord voice members from chat or a local control pipe",
		Long:          "oabot listens for ~mva, ~mc and ~umc chat commands and for single-word commands written to a local named pipe, and turns them into voice channel moves and server mutes.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newSendCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}
