package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/spf13/cobra"
	"github.com/wkalt/bindec/dsl"
	"github.com/wkalt/bindec/schemastore"
)

var schemasDBPath string

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Manage the local schema registry",
}

var schemasAddCmd = &cobra.Command{
	Use:   "add [name] [definition file]",
	Short: "Add or replace a named schema",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		definition, err := os.ReadFile(args[1])
		checkErr(err)
		store := openStore(cmd.Context())
		checkErr(store.Put(cmd.Context(), name, string(definition)))
		okf("stored schema %s", name)
	},
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored schemas",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context())
		names, err := store.List(cmd.Context())
		checkErr(err)
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var schemasGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a stored schema definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context())
		definition, err := store.Get(cmd.Context(), args[0])
		checkErr(err)
		fmt.Print(definition)
	},
}

var schemasRmCmd = &cobra.Command{
	Use:   "rm [name]",
	Short: "Delete a stored schema",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context())
		checkErr(store.Delete(cmd.Context(), args[0]))
		okf("deleted schema %s", args[0])
	},
}

func openStore(ctx context.Context) *schemastore.SchemaStore {
	db, err := sql.Open("sqlite3", schemasDBPath)
	checkErr(err)
	store, err := schemastore.NewSchemaStore(ctx, db, dsl.Builtins())
	checkErr(err)
	return store
}

func init() {
	rootCmd.AddCommand(schemasCmd)
	schemasCmd.AddCommand(schemasAddCmd)
	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasGetCmd)
	schemasCmd.AddCommand(schemasRmCmd)
	schemasCmd.PersistentFlags().StringVar(&schemasDBPath, "db", "bindec.db", "path to the schema database")
}
