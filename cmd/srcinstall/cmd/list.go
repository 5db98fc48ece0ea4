package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/srcinstall/internal/engine"
)

var listPrefix string

var listCmd = &cobra.Command{
	Use:   "list [package]",
	Short: "List packages and their installed versions",
	Long: `Without arguments, lists every package in the catalog with its installed
versions. With a package name, lists that package's installs one per line.
The version the 'default' symlink points at is marked with '*'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _, err := newInstaller()
		if err != nil {
			return err
		}

		if len(args) == 1 {
			l, err := in.List(args[0], listPrefix)
			if err != nil {
				return err
			}
			detail("base: %s", l.Base)
			if len(l.Installed) == 0 {
				info("%s: no versions installed", l.Package)
				return nil
			}
			for _, v := range l.Installed {
				fmt.Println(markDefault(v, l.Default))
			}
			return nil
		}

		if listPrefix != "" {
			return fmt.Errorf("--prefix needs a package name")
		}
		all, err := in.ListAll()
		if err != nil {
			return err
		}
		for _, l := range all {
			fmt.Printf("%-12s %-8s %s\n", l.Package, l.Kind, installedSummary(l))
		}
		return nil
	},
}

func installedSummary(l *engine.Listing) string {
	if len(l.Installed) == 0 {
		return "-"
	}
	marked := make([]string, len(l.Installed))
	for i, v := range l.Installed {
		marked[i] = markDefault(v, l.Default)
	}
	return strings.Join(marked, " ")
}

func markDefault(v, def string) string {
	if v == def {
		return v + "*"
	}
	return v
}

func init() {
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "package base directory (default <root>/<package>)")
	rootCmd.AddCommand(listCmd)
}
