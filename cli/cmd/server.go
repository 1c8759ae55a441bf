package cmd

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/bindec/service"
	"github.com/wkalt/bindec/storage"
)

var (
	serverPort      int
	serverDBPath    string
	serverDataDir   string
	serverS3URL     string
	serverS3Bucket  string
	serverAccessKey string
	serverSecretKey string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the schema registry and decode service",
	Run: func(cmd *cobra.Command, args []string) {
		opts := []service.Option{
			service.WithPort(serverPort),
			service.WithDatabasePath(serverDBPath),
		}
		if serverS3URL != "" {
			mc, err := minio.New(serverS3URL, &minio.Options{
				Creds: credentials.NewStaticV4(serverAccessKey, serverSecretKey, ""),
			})
			checkErr(err)
			opts = append(opts, service.WithStorageProvider(storage.NewS3Store(mc, serverS3Bucket)))
		} else {
			opts = append(opts, service.WithStorageProvider(storage.NewDirectoryStore(serverDataDir)))
		}
		checkErr(service.Start(cmd.Context(), opts...))
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.PersistentFlags().IntVar(&serverPort, "port", 8089, "listen port")
	serverCmd.PersistentFlags().StringVar(&serverDBPath, "db", "bindec.db", "path to the schema database")
	serverCmd.PersistentFlags().StringVar(&serverDataDir, "data", "data", "directory for object storage")
	serverCmd.PersistentFlags().StringVar(&serverS3URL, "s3-endpoint", "", "S3 endpoint (enables S3 object storage)")
	serverCmd.PersistentFlags().StringVar(&serverS3Bucket, "s3-bucket", "bindec", "S3 bucket")
	serverCmd.PersistentFlags().StringVar(&serverAccessKey, "s3-access-key", "", "S3 access key")
	serverCmd.PersistentFlags().StringVar(&serverSecretKey, "s3-secret-key", "", "S3 secret key")
}
