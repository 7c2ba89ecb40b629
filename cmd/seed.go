package cmd

import (
	"encoding/json"
	"os"

	"hot-server/config"
	"hot-server/services"

	"github.com/Laisky/errors/v2"
	"github.com/spf13/cobra"
)

var seedCMD = &cobra.Command{
	Use:   "seed",
	Short: "load users, events and userEvents from a JSON file",
	Long: `Load a seed file into MongoDB.

The file holds "users", "events" and "userEvents" arrays. Users and events
carry fixed _id values so friends and join records can refer to them.
Passwords are hashed on the way in and hot levels recomputed at the end.

Example usage:
  hot seed --file data/seed.json --reset`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")
		reset, _ := cmd.Flags().GetBool("reset")

		data, err := readSeedFile(file)
		if err != nil {
			return err
		}

		rt, err := setup(ctx)
		if err != nil {
			return err
		}
		defer rt.close(ctx)
		if rt.cfg.StoreBackend == config.BackendMemory {
			return errors.New("seeding the in-memory store has no effect, set STORE_BACKEND=mongo")
		}

		svc := services.New(rt.cols, rt.cache, rt.logger)
		_, err = svc.Seed(ctx, rt.logger, data, reset)
		return err
	},
}

func readSeedFile(path string) (*services.SeedData, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read seed file %s", path)
	}
	data := new(services.SeedData)
	if err := json.Unmarshal(payload, data); err != nil {
		return nil, errors.Wrapf(err, "parse seed file %s", path)
	}
	return data, nil
}

func init() {
	rootCMD.AddCommand(seedCMD)

	seedCMD.Flags().String("file", "data/seed.json", "path to the seed file")
	seedCMD.Flags().Bool("reset", false, "delete every user, event and userEvent first")
}
