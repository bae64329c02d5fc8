/*
Copyright © 2026 Michael Putera Wardana <michaelputeraw@gmail.com>
*/
package cmd

import (
	"github.com/krobus00/clob-gateway/internal/bootstrap"
	"github.com/spf13/cobra"
)

// gatewayCmd represents the gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the CLOB gateway service",
	Long: `The gateway rotates the venue API credentials at startup, opens the
authenticated user event stream, fans inbound venue events out to local
websocket subscribers, and serves the HTTP trading surface (orders, cancels,
markets, positions, credentials).`,
	Run: bootstrap.StartGateway,
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}
