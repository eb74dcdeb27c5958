package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/logger"
	"github.com/harrison/paircorpus/internal/publish"
)

// NewPublishCommand creates the publish command
func NewPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the materialized corpus to S3-compatible storage",
		Long: `Upload every file under the output directory to
s3://<bucket>/<prefix>/<program>/...

The endpoint and bucket come from the publish section of the config or from
PAIRCORPUS_S3_ENDPOINT and PAIRCORPUS_S3_BUCKET. Credentials are read only
from PAIRCORPUS_S3_ACCESS_KEY and PAIRCORPUS_S3_SECRET_KEY (a .env file in
the working directory is honoured). The bucket is created if missing.

Examples:
  paircorpus publish
  paircorpus publish --prefix corpus/2025-06
  paircorpus publish --dry-run`,
		Args: cobra.NoArgs,
		RunE: publishCommand,
	}
	cmd.Flags().String("prefix", "", "Object key prefix (default: publish.prefix)")
	cmd.Flags().Bool("dry-run", false, "List the object keys without uploading")
	return cmd
}

func publishCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("prefix") {
		cfg.Publish.Prefix, _ = cmd.Flags().GetString("prefix")
	}
	out := cmd.OutOrStdout()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		uploads, err := publish.Plan(cfg.OutputDir, cfg.Publish.Prefix)
		if err != nil {
			return err
		}
		for _, u := range uploads {
			fmt.Fprintln(out, u.Key)
		}
		fmt.Fprintf(out, "%d object(s) would be uploaded\n", len(uploads))
		return nil
	}

	if err := cfg.ValidatePublish(); err != nil {
		return err
	}
	pub, err := publish.NewS3Publisher(publish.Config{
		Endpoint:  cfg.Publish.Endpoint,
		Region:    cfg.Publish.Region,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		Bucket:    cfg.Publish.Bucket,
		Prefix:    cfg.Publish.Prefix,
		UseSSL:    cfg.Publish.UseSSL,
	})
	if err != nil {
		return err
	}
	pub.SetLogger(logger.NewConsoleLogger(out, cfg.LogLevel))

	n, err := pub.Publish(commandContext(cmd), cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("publish failed after %d object(s): %w", n, err)
	}
	fmt.Fprintf(out, "Uploaded %d object(s) to s3://%s/%s\n", n, pub.Bucket(), cfg.Publish.Prefix)
	return nil
}
