package deploytpl

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/deploytpl/internal/version"
	"github.com/arthur-debert/deploytpl/pkg/changes"
	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/deploy"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
	"github.com/arthur-debert/deploytpl/pkg/help"
	"github.com/arthur-debert/deploytpl/pkg/keystore"
	"github.com/arthur-debert/deploytpl/pkg/logging"
	"github.com/arthur-debert/deploytpl/pkg/output"
	"github.com/arthur-debert/deploytpl/pkg/paths"
	"github.com/arthur-debert/deploytpl/pkg/remote"
	"github.com/arthur-debert/deploytpl/pkg/security"
	"github.com/arthur-debert/deploytpl/pkg/transform"
)

// MaskedKeys are the leaf keys hidden by render --mask-passwords.
var MaskedKeys = []string{
	config.KeyJavaKeystorePassword,
	"java_truststore_password",
	"replication_password",
	"datasource_password",
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	var verbosity int

	rootCmd := &cobra.Command{
		Use:     "deploytpl",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringArrayP("config", "c", nil, MsgFlagConfig)
	flags.String("host", "", MsgFlagHost)
	flags.String("service", "", MsgFlagService)
	flags.StringArrayP("property", "p", nil, MsgFlagProperty)
	flags.String("template-search-path", "", MsgFlagTemplateSearchPath)
	flags.Bool("no-color", false, MsgFlagNoColor)

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "files", Title: "GENERATED FILES:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newChangedCmd())
	rootCmd.AddCommand(newModifiedCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newUnsecuredCmd())
	rootCmd.AddCommand(newInitConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	if topics, err := help.Default(nil); err == nil {
		topics.Install(rootCmd)
	} else {
		log.Debug().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

// loadStore reads the configuration named by the global flags.
func loadStore(cmd *cobra.Command) (*config.Store, error) {
	flags := cmd.Root().PersistentFlags()
	files, _ := flags.GetStringArray("config")
	searchPath, _ := flags.GetString("template-search-path")

	p := paths.New()
	if len(files) == 0 {
		files = p.DefaultConfigFiles()
	}
	for i, f := range files {
		files[i] = paths.ExpandHome(f)
	}

	store, err := config.Load(config.LoadOptions{
		Files:     files,
		IgnoreEnv: []string{paths.EnvConfigDir, paths.EnvDataDir},
	})
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}

	// CLI directories come first, the user templates directory last
	var dirs []string
	if searchPath != "" {
		for _, dir := range strings.Split(searchPath, ",") {
			dirs = append(dirs, paths.ExpandHome(strings.TrimSpace(dir)))
		}
	} else {
		v, _ := store.Get(config.Path{config.KeyTemplateSearchPath}, config.Raw)
		dirs = v.List()
	}
	dirs = append(dirs, p.TemplatesDir())
	if err := store.Set(config.Path{config.KeyTemplateSearchPath}, dirs); err != nil {
		return nil, err
	}
	return store, nil
}

// loadDeployment builds the deployment for the global flags.
func loadDeployment(cmd *cobra.Command) (*deploy.Deployment, error) {
	store, err := loadStore(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Root().PersistentFlags()
	host, _ := flags.GetString("host")
	service, _ := flags.GetString("service")
	props, _ := flags.GetStringArray("property")

	if host == "" {
		host, err = os.Hostname()
		if err != nil {
			return nil, err
		}
	}

	return deploy.New(deploy.Options{
		Store:      store,
		FS:         filesystem.NewOS(),
		Host:       host,
		Service:    service,
		Properties: props,
	})
}

func newRenderer(cmd *cobra.Command) (*output.Renderer, error) {
	noColor, _ := cmd.Root().PersistentFlags().GetBool("no-color")

	// User style overrides are optional
	styles := filepath.Join(paths.New().ConfigDir(), paths.StylesFileName)
	if _, err := os.Stat(styles); err == nil {
		if err := output.LoadStylesFromFile(styles); err != nil {
			log.Warn().Err(err).Str("path", styles).Msg("Ignoring style overrides")
		}
	}
	return output.NewRenderer(cmd.OutOrStdout(), noColor)
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "render <pattern>",
		Short:   MsgRenderShort,
		Long:    MsgRenderLong,
		Example: MsgRenderExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(args[0]) == "" {
				return fmt.Errorf(MsgErrNoTemplate)
			}
			out, _ := cmd.Flags().GetString("out")
			mask, _ := cmd.Flags().GetBool("mask-passwords")

			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			if mask {
				for _, key := range MaskedKeys {
					d.Store.DeclareTemplateValue(key, config.MaskedValue)
				}
			}

			var t *transform.Transformer
			if d.Service != "" {
				t, err = d.ServiceTransformer(out)
			} else {
				t, err = d.HostTransformer(out)
			}
			if err != nil {
				return err
			}
			if err := t.SetTemplate(args[0]); err != nil {
				return err
			}

			log.Info().Str("pattern", args[0]).Str("host", d.Host).Msg("Rendering template")
			text, err := t.Output()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringP("out", "o", "", MsgFlagOut)
	cmd.Flags().Bool("mask-passwords", false, MsgFlagMask)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Short:   MsgGenerateShort,
		Long:    MsgGenerateLong,
		Example: MsgGenerateExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noRecord, _ := cmd.Flags().GetBool("no-record")
			noSecurity, _ := cmd.Flags().GetBool("no-security")

			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			if err := d.Reset(); err != nil {
				return err
			}

			if !noSecurity {
				tls, err := security.EnsureTLSKeystore(cmd.Context(), d, security.TLSOptions{
					Cache:   keystore.NewCache(),
					Builder: keystore.NewKeytool(remote.NewLocal(), filepath.Join(d.Settings.TempDirectory, security.StagingDirName, "keystores")),
				})
				if err != nil {
					return err
				}
				if tls != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), MsgKeystoreStaged, tls)
				}
			}

			report := d.Generate(d.Settings.Files)

			if !noRecord {
				path, err := d.WriteConfigRecord()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), MsgRecordWritten, path)
			}

			r, err := newRenderer(cmd)
			if err != nil {
				return err
			}
			if err := r.RenderSummary(summaryOf(d, report)); err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf(MsgErrGenerate, len(failed))
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-record", false, MsgFlagNoRecord)
	cmd.Flags().Bool("no-security", false, MsgFlagNoSecurity)
	return cmd
}

func summaryOf(d *deploy.Deployment, report deploy.Report) output.Summary {
	s := output.Summary{Host: d.Host, Service: d.Service}
	for _, f := range report.Files {
		line := output.FileLine{Path: f.Path, Template: f.Spec.Template, Changed: f.Changed}
		if f.Err != nil {
			line.Error = f.Err.Error()
		}
		s.Files = append(s.Files, line)
	}
	return s
}

func newChangedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "changed",
		Short:   MsgChangedShort,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			changed, err := d.Tracker.Changed()
			if err != nil {
				return err
			}
			r, err := newRenderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderList(output.List{Title: MsgChangedTitle, Empty: MsgNoChanged, Items: changed})
		},
	}
}

func newModifiedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "modified",
		Short:   MsgModifiedShort,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			modified, err := d.Watches.Modified()
			if err != nil {
				return err
			}
			r, err := newRenderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderList(output.List{Title: MsgModifiedTitle, Empty: MsgNoModified, Items: modified})
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   MsgWatchShort,
		GroupID: "files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			entries, err := d.Watches.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), MsgNoWatched)
				return nil
			}

			files := make([]string, 0, len(entries))
			for _, e := range entries {
				files = append(files, d.Watches.Resolve(e.Path))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events := make(chan changes.Event)
			errc := make(chan error, 1)
			go func() {
				errc <- changes.NewMonitor(files, 0).Run(ctx, events)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), MsgWatching, len(files))
			for {
				select {
				case ev := <-events:
					fmt.Fprintf(cmd.OutOrStdout(), MsgWatchEvent, ev.Time.Format("15:04:05"), ev.Op, ev.Path)
				case err := <-errc:
					if err != nil && ctx.Err() == nil {
						return err
					}
					return nil
				}
			}
		},
	}
}

func newUnsecuredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "unsecured [dir]",
		Short:   MsgUnsecuredShort,
		GroupID: "files",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("level")

			d, err := loadDeployment(cmd)
			if err != nil {
				return err
			}
			if level == "" {
				level = d.Settings.FileProtectionLevel
			}
			umask, err := filesystem.Umask(level)
			if err != nil {
				return err
			}

			dir := d.Settings.PrepareDirectory
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := security.FindUnsecuredFiles(d.FS, dir, umask)
			if err != nil {
				return err
			}

			items := make([]string, 0, len(files))
			for _, f := range files {
				items = append(items, fmt.Sprintf("%s %s", f.Mode, f.Path))
			}
			r, err := newRenderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderList(output.List{
				Title: fmt.Sprintf(MsgUnsecuredTitle, level),
				Empty: MsgNoUnsecured,
				Items: items,
			})
		},
	}
	cmd.Flags().String("level", "", MsgFlagLevel)
	return cmd
}

func newInitConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init-config",
		Short:   MsgInitConfigShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			write, _ := cmd.Flags().GetBool("write")
			content := config.GenerateConfigContent()
			if !write {
				_, err := fmt.Fprint(cmd.OutOrStdout(), content)
				return err
			}

			fs := filesystem.NewOS()
			path := filepath.Join(paths.New().ConfigDir(), paths.ConfigFileNames[0])
			if filesystem.Exists(fs, path) {
				return fmt.Errorf(MsgErrConfigExists, path)
			}
			if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWritten, path)
			return nil
		},
	}
	cmd.Flags().BoolP("write", "w", false, MsgFlagWrite)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deploytpl version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Built:  %s\n", version.Date)
			}
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}
}
