package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/frameset/internal/config"
	"github.com/leapstack-labs/frameset/pkg/serialize"
)

func newConvertCmd(cfg **config.Config, logger **slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Rewrite an entityset in another table format",
		Long: `Read the entityset at <src> and write it to <dst> using the
configured table format, compression and manifest encoding.

The destination is replaced if it already exists.`,
		Example: `  # Convert a csv entityset to compressed parquet
  frameset convert ./retail_es ./retail_es_pq --format parquet --compression snappy

  # Same dataset with a yaml manifest
  frameset convert ./retail_es ./retail_es_pq --format parquet --manifest yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := serialize.Read(cmd.Context(), args[0], serialize.ReadOptions{Logger: *logger})
			if err != nil {
				return err
			}
			defer es.Release()

			c := *cfg
			params := map[string]any{}
			if c.Compression != "" {
				params["compression"] = c.Compression
			}
			err = serialize.Write(cmd.Context(), es, args[1], serialize.WriteOptions{
				Format:         c.Format,
				Params:         params,
				ManifestFormat: c.Manifest,
				Logger:         *logger,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s (%d entities, format %s)\n",
				args[0], args[1], len(es.Entities()), c.Format)
			return nil
		},
	}
}
