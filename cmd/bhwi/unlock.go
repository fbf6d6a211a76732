package bhwi

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wizardsardine/bhwi/common"
	"github.com/wizardsardine/bhwi/internal/cliutil"
	"github.com/wizardsardine/bhwi/runner"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Open the Bitcoin app / complete the auth handshake on a device",
	Run: func(cmd *cobra.Command, args []string) {
		network, err := parseNetwork(cfg.Network)
		if err != nil {
			fatalf("%v", err)
		}

		facade, err := newFacade(cfg.Device)
		if err != nil {
			fatalf("%v", err)
		}

		sp := cliutil.NewSpinner(cliutil.WithMessage("waiting on device..."))
		sp.Start()
		defer sp.Stop()

		dev, http, interp := facade.Components()
		resp, err := runner.Run(context.Background(), common.Unlock{Network: network}, interp, dev, http, logger)
		if err != nil {
			fatalf("unlock failed: %v", err)
		}

		if err := facade.OnUnlock(resp); err != nil {
			fatalf("unlock failed: %v", err)
		}

		cmd.Println("device unlocked")
	},
}

func parseNetwork(s string) (common.Network, error) {
	switch s {
	case "bitcoin", "mainnet", "":
		return common.Bitcoin, nil
	case "testnet":
		return common.Testnet, nil
	case "signet":
		return common.Signet, nil
	case "regtest":
		return common.Regtest, nil
	default:
		return common.Bitcoin, common.NewError(common.ErrMissingCommandInfo, "unknown network "+s)
	}
}
