package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/sigwatch-dev/sigwatch/collection/canonical"
	"github.com/sigwatch-dev/sigwatch/collection/ports"
	"github.com/sigwatch-dev/sigwatch/collection/services"
	"github.com/sigwatch-dev/sigwatch/collection/signing"
	"github.com/sigwatch-dev/sigwatch/config"
	"github.com/sigwatch-dev/sigwatch/prompt"
	"github.com/sigwatch-dev/sigwatch/publish"
	"github.com/sigwatch-dev/sigwatch/remote"
	"github.com/sigwatch-dev/sigwatch/schema"
)

type rootOptions struct {
	configFile string
	server     string
	auth       string
	include    []string
	exclude    []string
	verbose    bool
}

// event resolves the effective configuration: the event file when given,
// overridden by whatever flags were set explicitly.
func (o *rootOptions) event() (*config.Event, error) {
	event, err := o.rawEvent()
	if err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// rawEvent skips validation for the operations that never contact the
// collection server.
func (o *rootOptions) rawEvent() (*config.Event, error) {
	event := &config.Event{}
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		event = loaded
	}
	if o.server != "" {
		event.Server = o.server
	}
	if o.auth != "" {
		event.Auth = o.auth
	}
	if len(o.include) > 0 {
		event.Include = o.include
	}
	if len(o.exclude) > 0 {
		event.Exclude = o.exclude
	}
	return event, nil
}

// client builds the remote client, attaching credentials when the
// operation mutates server state and gating on the configured minimum
// server version.
func (o *rootOptions) client(ctx context.Context, event *config.Event, needAuth bool) (*remote.Client, error) {
	opts := []remote.Option{remote.WithUserAgent("sigwatch")}
	if needAuth {
		creds, err := event.Credentials()
		if err != nil {
			return nil, err
		}
		if creds.IsZero() {
			return nil, fmt.Errorf("credentials are required, set --auth or %s", config.AuthEnvVar)
		}
		opts = append(opts, remote.WithBasicAuth(creds.User, creds.Secret))
	}

	client, err := remote.NewClient(event.Server, opts...)
	if err != nil {
		return nil, err
	}
	if event.MinServerVersion != "" {
		if err := client.CheckServerVersion(ctx, event.MinServerVersion); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "sigwatch",
		Short:        "Watch content signatures of remote collections",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "event file (JSON or YAML)")
	flags.StringVarP(&opts.server, "server", "s", "", "remote service root URL")
	flags.StringVar(&opts.auth, "auth", "", "user:secret credentials for mutating operations")
	flags.StringSliceVar(&opts.include, "include", nil, "only process collections matching these bucket/collection patterns")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "skip collections matching these bucket/collection patterns")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newValidateCmd(opts),
		newCheckChangesCmd(opts),
		newRefreshCmd(opts),
		newUpdateSchemasCmd(opts),
		newPublishCmd(opts),
		newInvalidateCmd(opts),
	)
	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Verify the content signature of every configured collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.event()
			if err != nil {
				return err
			}
			client, err := opts.client(cmd.Context(), event, false)
			if err != nil {
				return err
			}
			refs, err := event.CollectionRefs(config.DefaultCollections())
			if err != nil {
				return err
			}

			validator := services.NewSignatureValidator(
				client,
				canonical.NewSerializer(),
				canonical.NewHasher(""),
				signing.NewContentSignatureVerifier(),
				slog.Default(),
			)
			report, err := validator.Run(cmd.Context(), refs)
			for _, entry := range report.Entries() {
				status := "OK"
				if !entry.OK {
					status = "KO"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: signature %s\n", entry.Ref, status)
			}
			return err
		},
	}
}

func newCheckChangesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-changes",
		Short: "Compare the changes registry against live collection timestamps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.event()
			if err != nil {
				return err
			}
			client, err := opts.client(cmd.Context(), event, false)
			if err != nil {
				return err
			}
			registry, err := event.Registry()
			if err != nil {
				return err
			}

			checker := services.NewChangesChecker(client, slog.Default())
			if err := checker.Run(cmd.Context(), registry); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "registry is consistent")
			return nil
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Re-trigger signing of collections whose status is signed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.event()
			if err != nil {
				return err
			}
			client, err := opts.client(cmd.Context(), event, true)
			if err != nil {
				return err
			}
			refs, err := event.CollectionRefs(config.DefaultCollections())
			if err != nil {
				return err
			}

			var confirmer ports.Confirmer = prompt.NewTerminalPrompter()
			if yes {
				confirmer = prompt.AutoApprover{Answer: true}
			}

			driver := services.NewLifecycleDriver(client, confirmer, slog.Default())
			statuses, err := driver.Run(cmd.Context(), refs)
			for _, st := range statuses {
				action := "untouched"
				if st.Triggered {
					action = "to-sign requested"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: status=%s %s (%s)\n", st.Ref, st.Status, action, st.ReportedAt.Human())
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "trigger re-signing without prompting")
	return cmd
}

func newUpdateSchemasCmd(opts *rootOptions) *cobra.Command {
	var schemaFile string

	cmd := &cobra.Command{
		Use:   "update-schemas",
		Short: "Push record schemas to staged collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.event()
			if err != nil {
				return err
			}
			if schemaFile == "" {
				schemaFile = event.SchemaFile
			}
			if schemaFile == "" {
				return fmt.Errorf("a schemas file is required, set --schemas")
			}

			doc, err := schema.LoadDocument(schemaFile)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd.Context(), event, true)
			if err != nil {
				return err
			}
			refs, err := event.CollectionRefs(config.DefaultSchemaCollections())
			if err != nil {
				return err
			}

			return schema.NewUpdater(client, slog.Default()).Run(cmd.Context(), refs, doc)
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schemas", "", "path to the schemas document")
	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a generated artifact directory to blob storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.rawEvent()
			if err != nil {
				return err
			}

			region := event.AWSRegion
			if region == "" {
				region = publish.DefaultRegion
			}
			cfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(region))
			if err != nil {
				return fmt.Errorf("loading AWS configuration: %w", err)
			}

			syncer := publish.NewS3Syncer(s3.NewFromConfig(cfg), region, event.BucketName, slog.Default())
			uploaded, err := syncer.Sync(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d objects\n", len(uploaded))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory holding the generated artifacts")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newInvalidateCmd(opts *rootOptions) *cobra.Command {
	var distributionID string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Invalidate the CDN cache in front of the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.rawEvent()
			if err != nil {
				return err
			}
			if distributionID == "" {
				distributionID = event.DistributionID
			}

			cfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading AWS configuration: %w", err)
			}

			inv := publish.NewCacheInvalidator(cloudfront.NewFromConfig(cfg), slog.Default())
			id, err := inv.Invalidate(cmd.Context(), distributionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidation %s submitted\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&distributionID, "distribution", "", "CloudFront distribution ID")
	return cmd
}
