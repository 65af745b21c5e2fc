package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/kpicast/internal/cli"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <merchant>",
	Short: "Show the predicted status of merchants matching an id",
	Long: "Look up merchants in the status sheet. The query matches any part of\n" +
		"the merchant id, ignoring case.",
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(_ *cobra.Command, args []string) error {
	cache, closeCache := openCache(rt.cfg, rt.log)
	defer closeCache()

	loaded, err := newLoader(rt.cfg, rt.log, cache).Statuses()
	if err != nil {
		return err
	}
	if !flagQuiet {
		src := "read"
		if loaded.CacheHit {
			src = "cached"
		}
		fmt.Fprintf(os.Stderr, "  Status sheet %s (%s)\n", src, rt.cfg.Input.StatusPath)
		if loaded.Skipped > 0 {
			fmt.Fprintf(os.Stderr, "  %d unreadable rows ignored\n", loaded.Skipped)
		}
	}

	matches, err := loaded.Lookup.Lookup(args[0])
	if err != nil {
		return fmt.Errorf("looking up %q: %w", args[0], err)
	}
	if len(matches) == 0 {
		fmt.Printf("\n  No merchants match %q.\n\n", args[0])
		return nil
	}

	lang := rt.cfg.Appearance.Language
	headers := []string{"Merchant", "Indicator", "Future Status"}
	if lang == "ko" {
		headers = []string{"가맹점", "지표", "미래상태"}
	}
	t := cli.Table{
		Title:   fmt.Sprintf("%d matches for %q", len(matches), args[0]),
		Headers: headers,
	}
	for _, m := range matches {
		t.Rows = append(t.Rows, []string{
			m.MerchantID,
			m.Indicator,
			cli.StatusStyle(m.Status).Render(cli.FormatStatus(m.Status, lang)),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	return nil
}
