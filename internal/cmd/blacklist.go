package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sitegate/sitegate/internal/admission"
	"github.com/sitegate/sitegate/internal/config"
)

var (
	blacklistListJSON bool
	blacklistAddTTL   time.Duration
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the address blacklist",
	Long: `Inspect and edit the blacklist held in the shared counter store.

Entries added by the abuse escalation expire on their own; these commands
exist for operators who need to lift a ban early or ban an address by hand.`,
}

// blacklistEntry is one banned address as shown to the operator.
type blacklistEntry struct {
	Addr     string `json:"addr"`
	BannedAt string `json:"banned_at,omitempty"`
	TTL      string `json:"ttl"`
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List banned addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		counterStore, closeStore, err := openCounterStore()
		if err != nil {
			return err
		}
		defer closeStore()

		entries, err := collectBlacklist(cmd.Context(), counterStore)
		if err != nil {
			return err
		}

		if blacklistListJSON {
			payload, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		if len(entries) == 0 {
			fmt.Println("(no banned addresses)")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Address", "Banned At", "Expires In"})
		for _, entry := range entries {
			t.AppendRow(table.Row{entry.Addr, entry.BannedAt, entry.TTL})
		}
		t.Render()
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove <addr>",
	Short: "Lift the ban on an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := strings.TrimSpace(args[0])
		if addr == "" {
			return fmt.Errorf("address must not be empty")
		}

		counterStore, closeStore, err := openCounterStore()
		if err != nil {
			return err
		}
		defer closeStore()

		key := admission.BlacklistKeyPrefix + addr
		_, present, err := counterStore.Get(cmd.Context(), key)
		if err != nil {
			return err
		}
		if !present {
			fmt.Printf("%s is not banned\n", addr)
			return nil
		}

		if err := counterStore.Del(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Printf("Ban lifted for %s\n", addr)
		return nil
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add <addr>",
	Short: "Ban an address by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := strings.TrimSpace(args[0])
		if addr == "" {
			return fmt.Errorf("address must not be empty")
		}

		counterStore, closeStore, err := openCounterStore()
		if err != nil {
			return err
		}
		defer closeStore()

		key := admission.BlacklistKeyPrefix + addr
		bannedAt := time.Now().UTC().Format(time.RFC3339)
		if err := counterStore.Set(cmd.Context(), key, bannedAt, blacklistAddTTL); err != nil {
			return err
		}
		fmt.Printf("Banned %s for %s\n", addr, blacklistAddTTL)
		return nil
	},
}

// openCounterStore connects to the shared counter store using the loaded
// configuration. The returned closer releases the connection.
func openCounterStore() (*admission.RedisStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return admission.NewRedisStore(client, cfg.Redis.Timeout), func() { _ = client.Close() }, nil
}

func collectBlacklist(ctx context.Context, counterStore *admission.RedisStore) ([]blacklistEntry, error) {
	keys, err := counterStore.ScanKeys(ctx, admission.BlacklistKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	entries := make([]blacklistEntry, 0, len(keys))
	for _, key := range keys {
		entry := blacklistEntry{Addr: strings.TrimPrefix(key, admission.BlacklistKeyPrefix)}

		if value, present, err := counterStore.Get(ctx, key); err == nil && present {
			entry.BannedAt = value
		}
		if ttl, err := counterStore.TTL(ctx, key); err == nil && ttl > 0 {
			entry.TTL = ttl.Round(time.Second).String()
		} else {
			entry.TTL = "-"
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func init() {
	blacklistListCmd.Flags().BoolVar(&blacklistListJSON, "json", false, "output JSON instead of a table")
	blacklistAddCmd.Flags().DurationVar(&blacklistAddTTL, "ttl", 24*time.Hour, "how long the ban lasts")

	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
	rootCmd.AddCommand(blacklistCmd)
}
