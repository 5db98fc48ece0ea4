package cmd

import (
	"github.com/spf13/cobra"
)

var defaultPrefix string

var defaultCmd = &cobra.Command{
	Use:   "default <package> <version>",
	Short: "Point a package's default symlink at an installed version",
	Long: `Creates or replaces <root>/<package>/default so it points at the given
installed version. Unlike the update after an install, this always applies,
which makes it the way to pin a default that later installs leave alone
(combine with alias.update_symlink: false).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _, err := newInstaller()
		if err != nil {
			return err
		}
		action, err := in.SetDefault(args[0], args[1], defaultPrefix)
		if err != nil {
			return err
		}
		info("default: %s %s (%s)", args[0], args[1], action)
		return nil
	},
}

func init() {
	defaultCmd.Flags().StringVar(&defaultPrefix, "prefix", "", "package base directory (default <root>/<package>)")
	rootCmd.AddCommand(defaultCmd)
}
