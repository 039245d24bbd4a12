package commands

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinoosan/voucherledger/internal/config"
)

var prefixPattern = regexp.MustCompile(`^[A-Z]{2,8}$`)

func newNextCodeCommand() *cobra.Command {
	var peek bool

	cmd := &cobra.Command{
		Use:   "next-code PREFIX",
		Short: "Issue (or preview with --peek) the next code for PREFIX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := strings.ToUpper(strings.TrimSpace(args[0]))
			if !prefixPattern.MatchString(prefix) {
				return fmt.Errorf("prefix %q must be 2-8 letters", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(io.Discard)
			store, closeStore, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			var code string
			if peek {
				code, err = store.PeekCode(cmd.Context(), prefix)
			} else {
				code, err = store.IssueCode(cmd.Context(), prefix)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}

	cmd.Flags().BoolVar(&peek, "peek", false, "show the next code without consuming it")

	return cmd
}
