package bhwi

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/wizardsardine/bhwi/common"
	"github.com/wizardsardine/bhwi/internal/cliutil"
	"github.com/wizardsardine/bhwi/runner"
)

var (
	xpubPath    string
	xpubDisplay bool
)

func init() {
	xpubCmd.Flags().StringVar(&xpubPath, "path", "m/84'/0'/0'", "derivation path")
	xpubCmd.Flags().BoolVar(&xpubDisplay, "display", false, "ask the device to show the path on-screen before answering")
}

var xpubCmd = &cobra.Command{
	Use:   "xpub",
	Short: "Fetch the extended public key at a derivation path",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := common.ParseDerivationPath(xpubPath)
		if err != nil {
			fatalf("invalid path %q: %v", xpubPath, err)
		}

		if xpubDisplay {
			var proceed bool
			_ = survey.AskOne(
				&survey.Confirm{Message: "Confirm the path on the device's screen, then continue"},
				&proceed,
				survey.WithStdio(os.Stdin, os.Stderr, os.Stderr),
			)
		}

		facade, err := newFacade(cfg.Device)
		if err != nil {
			fatalf("%v", err)
		}

		sp := cliutil.NewSpinner(cliutil.WithMessage("waiting on device..."))
		sp.Start()
		defer sp.Stop()

		dev, http, interp := facade.Components()
		resp, err := runner.Run(context.Background(), common.GetXpub{Path: path, Display: xpubDisplay}, interp, dev, http, logger)
		if err != nil {
			fatalf("xpub failed: %v", err)
		}

		xpub, ok := resp.(common.Xpub)
		if !ok {
			fatalf("unexpected response type %T", resp)
		}
		cmd.Println(xpub.Xpub)
	},
}
