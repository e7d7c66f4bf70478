package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chat QUERY QUESTION",
		Short: "Answer a question about a topic's Wikipedia article",
		Long: "Summarizes the topic to load its article, then answers the question\n" +
			"using only the article text.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, nil)
			if err != nil {
				return err
			}
			logger, closer := setupLogging(cfg, cmd.ErrOrStderr())
			defer closer.Close()

			ctx := commandContext(cmd)
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.orch.Summarize(ctx, cliIdentity, args[0]); err != nil {
				return err
			}
			result, err := a.orch.Chat(ctx, cliIdentity, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, result.Answer)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
