package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	versionpkg "github.com/bianoble/srcinstall/internal/version"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <package> [latest|<version>]",
	Short: "Show which release a version spec selects",
	Long: `Lists the package's upstream tags and prints the version and tag that
'install' would build, without fetching or building anything.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := versionpkg.Latest
		if len(args) == 2 {
			spec = args[1]
		}

		in, _, err := newInstaller()
		if err != nil {
			return err
		}
		pkg, res, err := in.Resolve(cmd.Context(), args[0], spec)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s\n", pkg.Name, res.Version)
		detail("tag:  %s", res.Tag)
		detail("repo: %s", pkg.Repo)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
