package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"growthline/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "gl",
	Short:         "Growthline — local growth economy for students",
	Long:          "Growthline is a local-first CLI/TUI that turns study tasks into coins, growth points and achievements.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newStatusCmd(),
		newAddCmd(),
		newDoCmd(),
		newFailCmd(),
		newProgressCmd(),
		newListCmd(),
		newAllocateCmd(),
		newAchCmd(),
		newShopCmd(),
		newInventoryCmd(),
		newLoginCmd(),
		newResetCmd(),
		newBoardCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}
