package cmd

import (
	"fmt"
	"os"

	"github.com/pilab-dev/betwiz-oauth/internal/auth"
	"github.com/pilab-dev/betwiz-oauth/log"
	"github.com/pilab-dev/betwiz-oauth/mongodb"
	"github.com/pilab-dev/betwiz-oauth/seed"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var clientsCmd = &cobra.Command{
	Use:     "clients",
	Short:   "Manage registered OAuth clients",
	Aliases: []string{"client"},
}

var clientsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create or update clients from a YAML file",
	Long: `Reads a YAML file with a top-level "clients" list and upserts every entry
into MongoDB. Entries without client_id or client_secret get generated values,
which are printed once.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		hash, _ := cmd.Flags().GetBool("hash")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()

		specs, err := seed.LoadClients(f)
		if err != nil {
			return err
		}

		mongoClient, db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		defer mongodb.Close(ctx, mongoClient)

		repo, err := mongodb.NewClientRepository(ctx, db)
		if err != nil {
			return err
		}

		var hasher seed.SecretHasher
		if hash || cfg.OAuth.ClientSecretHashing == "bcrypt" {
			hasher = auth.NewBcryptPasswordHasher(bcrypt.DefaultCost)
		}

		results, err := seed.Apply(ctx, repo, specs, hasher)
		for _, res := range results {
			appLogger.Info(ctx, "client stored", log.Fields{"client_id": res.ClientID})
			if res.GeneratedSecret {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.ClientID, res.Secret)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), res.ClientID)
			}
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
	clientsCmd.AddCommand(clientsSeedCmd)

	clientsSeedCmd.Flags().StringP("file", "f", "clients.yaml", "path to the clients YAML file")
	clientsSeedCmd.Flags().Bool("hash", false, "store bcrypt hashes of the secrets")
}
