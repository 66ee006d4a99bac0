// jsontrans translates the string fields of JSON documents with AI and
// neural MT backends.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Arean82/jsontrans/cache"
	"github.com/Arean82/jsontrans/config"
	"github.com/Arean82/jsontrans/credentials"
	"github.com/Arean82/jsontrans/i18n"
	"github.com/Arean82/jsontrans/jsondoc"
	"github.com/Arean82/jsontrans/langs"
	"github.com/Arean82/jsontrans/pipeline"
	"github.com/Arean82/jsontrans/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jsontrans",
		Short: "Translate JSON documents with AI and neural MT backends",
		Long: `jsontrans translates the string fields of JSON documents.

Walks a JSON document, collects every translatable string leaf, translates
the strings through a configurable backend, and writes the results back in
one of two shapes:

  merged   one document where each leaf becomes a {lang: text} mapping
  blog     one structurally identical document per target language

Commands:
  translate   Translate a JSON document
  inspect     List the translatable fields of a document
  auth        Manage backend credentials
  languages   Manage the saved target language list

Backends:
  openai   OpenAI chat completions (API key)
  amazon   AWS Translate (access key + secret key)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Working directory (location of .jsontrans.yaml)")

	root.AddCommand(
		newTranslateCmd(),
		newInspectCmd(),
		newAuthCmd(),
		newLanguagesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jsontrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// translate (the main pipeline)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		// Backend selection
		backend string
		model   string

		// Language selection
		source    string
		langsFlag string

		// Output shaping
		mode      string
		outputDir string

		// Batching and concurrency
		batchSize     int
		maxConcurrent int
		maxRetries    int

		// Network
		timeout time.Duration
		proxy   string

		// Observability
		metricsAddr string
		verbose     bool

		noCache   bool
		credsPath string
	)

	cmd := &cobra.Command{
		Use:   "translate <file.json>",
		Short: "Translate a JSON document",
		Long: `Translate the string fields of a JSON document.

Reads the saved language selection (see 'jsontrans languages') unless
--langs is given. Values from .jsontrans.yaml in the working directory are
used as defaults; flags always win.

Examples:
  # Merged output with the saved language list
  jsontrans translate content.json

  # One document per language, explicit targets
  jsontrans translate post.json --mode blog --langs fr,es,de

  # AWS Translate backend
  jsontrans translate content.json --backend amazon`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runTranslate(cmd, translateArgs{
				input:   args[0],
				backend: backend, model: model,
				source: source, langs: langsFlag,
				mode: mode, outputDir: outputDir,
				batchSize: batchSize, maxConcurrent: maxConcurrent,
				maxRetries: maxRetries,
				timeout:    timeout, proxy: proxy,
				metricsAddr: metricsAddr, verbose: verbose,
				noCache:   noCache,
				credsPath: credsPath,
			})
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "openai", "Translation backend: openai, amazon")
	cmd.Flags().StringVar(&model, "model", "", "Model name (openai backend)")
	cmd.Flags().StringVar(&source, "source", "en", "Source language code")
	cmd.Flags().StringVar(&langsFlag, "langs", "", "Target languages (comma-separated, default: saved selection)")
	cmd.Flags().StringVar(&mode, "mode", "merged", "Output mode: merged, blog")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default: next to the input file)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Strings per API request (0 = mode default)")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Maximum concurrent requests (1-8, default 4)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Maximum retries on rate limit (429)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 = backend default)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Translate every field even if "+cache.FileName+" has it")
	cmd.Flags().StringVar(&credsPath, "credentials", "", "Credentials file (default: "+credentials.DefaultPath()+")")

	_ = cmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"openai\tOpenAI chat completions (API key)",
			"amazon\tAWS Translate (access key + secret key)",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"merged\tsingle document with per-leaf language mappings",
			"blog\tone document per target language",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	input                     string
	backend, model            string
	source, langs             string
	mode, outputDir           string
	batchSize, maxConcurrent  int
	maxRetries                int
	timeout                   time.Duration
	proxy                     string
	metricsAddr               string
	verbose                   bool
	noCache                   bool
	credsPath                 string
}

// applyFileConfig fills unset flags from .jsontrans.yaml values.
func applyFileConfig(cmd *cobra.Command, a *translateArgs, fc *config.File) {
	if fc == nil {
		return
	}
	changed := cmd.Flags().Changed
	if !changed("backend") && fc.Backend != "" {
		a.backend = fc.Backend
	}
	if !changed("model") && fc.Model != "" {
		a.model = fc.Model
	}
	if !changed("source") && fc.SourceLang != "" {
		a.source = fc.SourceLang
	}
	if !changed("langs") && len(fc.Languages) > 0 && a.langs == "" {
		a.langs = strings.Join(fc.Languages, ",")
	}
	if !changed("mode") && fc.Mode != "" {
		a.mode = fc.Mode
	}
	if !changed("output-dir") && fc.OutputDir != "" {
		a.outputDir = fc.OutputDir
	}
	if !changed("batch-size") && fc.BatchSize > 0 {
		a.batchSize = fc.BatchSize
	}
	if !changed("max-concurrent") && fc.MaxConcurrent > 0 {
		a.maxConcurrent = fc.MaxConcurrent
	}
	if !changed("max-retries") && fc.MaxRetries > 0 {
		a.maxRetries = fc.MaxRetries
	}
	if !changed("proxy") && fc.Proxy != "" {
		a.proxy = fc.Proxy
	}
}

func runTranslate(cmd *cobra.Command, a translateArgs) {
	fc, err := config.Load(rootDir)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	applyFileConfig(cmd, &a, fc)

	mode, err := pipeline.ParseMode(a.mode)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	// Target languages: flag, then config file, then saved selection
	var targetLangs []string
	if a.langs != "" {
		for _, lang := range strings.Split(a.langs, ",") {
			if lang = strings.TrimSpace(lang); lang != "" {
				targetLangs = append(targetLangs, lang)
			}
		}
	} else {
		sel := langs.LoadSelection(credentials.DataDir())
		targetLangs = sel.Codes()
		logInfo("Using saved language selection: %s", strings.Join(targetLangs, ", "))
	}

	credsPath := a.credsPath
	if credsPath == "" {
		credsPath = credentials.DefaultPath()
	}
	creds, err := credentials.Load(credsPath)
	if err != nil {
		logError("Loading credentials: %v", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if a.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	// Setup signal handling for graceful cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend, err := translate.New(ctx, a.backend, creds, translate.Options{
		Model:   a.model,
		Proxy:   a.proxy,
		Timeout: a.timeout,
		Logger:  log,
	})
	if err != nil {
		logError("%v", err)
		if _, ok := err.(*translate.AuthError); ok {
			fmt.Fprintf(os.Stderr, "  Configure credentials with: jsontrans auth set-%s\n", a.backend)
		}
		os.Exit(1)
	}

	if a.metricsAddr != "" {
		go serveMetrics(a.metricsAddr)
	}

	var transCache *cache.File
	if !a.noCache {
		transCache, err = cache.Load(filepath.Dir(a.input))
		if err != nil {
			logWarning("Ignoring translation cache: %v", err)
			transCache = nil
		}
	}

	logInfo(i18n.T("Translating %s"), a.input)
	cfg := pipeline.Config{
		InputPath:     a.input,
		OutputDir:     a.outputDir,
		SourceLang:    a.source,
		TargetLangs:   targetLangs,
		Mode:          mode,
		Backend:       backend,
		BatchSize:     a.batchSize,
		MaxConcurrent: a.maxConcurrent,
		MaxRetries:    a.maxRetries,
		Cache:         transCache,
		Logger:        log,
		OnPhase: func(p pipeline.Phase) {
			log.WithField("phase", p.String()).Debug("phase change")
		},
		OnProgress: func(done, total int) {
			logInfo("  %d/%d translations", done, total)
		},
	}

	report, err := pipeline.Run(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			logWarning(i18n.T("Translation cancelled"))
			os.Exit(130)
		}
		logError("%v", err)
		os.Exit(1)
	}

	printReport(report)
}

func printReport(r *pipeline.Report) {
	if r.Fields == 0 {
		logWarning(i18n.T("No translatable fields found"))
	} else {
		logInfo(i18n.N("Selected %d translatable field", "Selected %d translatable fields", r.Fields), r.Fields)
	}
	if r.Cached > 0 {
		logInfo(i18n.T("Reused %d cached translations"), r.Cached)
	}
	for _, lang := range r.DroppedLangs {
		logWarning(i18n.T("Dropped %s: every translation failed"), lang)
	}
	for lang, n := range r.FailedPairs {
		if n > 0 {
			logWarning("%s: %d fields left untranslated", lang, n)
		}
	}
	for _, w := range r.Warnings {
		logWarning("%s", w)
	}
	for _, path := range r.OutputPaths {
		logSuccess(i18n.T("Wrote %s"), path)
	}
	logInfo(i18n.T("Done in %s"), r.Elapsed.Round(time.Millisecond))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logWarning("Metrics server: %v", err)
	}
}

// ---------------------------------------------------------------------------
// inspect (read-only: list translatable fields)
// ---------------------------------------------------------------------------

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.json>",
		Short: "List the translatable fields of a document",
		Long: `Parse a JSON document and list every field that would be translated.

Shows the path and text of each non-empty string leaf. Does not call any
backend and does not modify any files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := jsondoc.ParseFile(args[0])
			if err != nil {
				return err
			}
			fields := jsondoc.SelectFields(doc)
			if len(fields) == 0 {
				logWarning(i18n.T("No translatable fields found"))
				return nil
			}
			for _, f := range fields {
				text := f.Text
				if len(text) > 60 {
					text = text[:57] + "..."
				}
				fmt.Printf("  %-40s %q\n", f.Path, text)
			}
			logInfo(i18n.N("Selected %d translatable field", "Selected %d translatable fields", len(fields)), len(fields))
			return nil
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// auth (credential management)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	var credsPath string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage backend credentials",
		Long: `Manage backend credentials.

Credentials are stored in ` + credentials.DefaultPath() + `
with owner-only permissions.`,
	}

	cmd.PersistentFlags().StringVar(&credsPath, "credentials", "", "Credentials file (default: "+credentials.DefaultPath()+")")

	resolve := func() string {
		if credsPath != "" {
			return credsPath
		}
		return credentials.DefaultPath()
	}

	cmd.AddCommand(
		newAuthSetOpenAICmd(resolve),
		newAuthSetAmazonCmd(resolve),
		newAuthShowCmd(resolve),
		newAuthClearCmd(resolve),
	)

	return cmd
}

// promptLine reads one trimmed line from stdin after printing a prompt.
func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input received")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAuthSetOpenAICmd(resolve func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-openai",
		Short: "Store the OpenAI API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolve()
			creds, err := credentials.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "\n%sOpenAI API Key Setup%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			if creds.OpenAI != nil && creds.OpenAI.Key != "" {
				fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, credentials.MaskKey(creds.OpenAI.Key), colorReset)
			}
			key, err := promptLine("  Enter API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("no API key provided")
			}

			creds.SetOpenAI(key)
			if err := creds.Save(path); err != nil {
				return err
			}
			logSuccess(i18n.T("OpenAI credentials saved"))
			return nil
		},
	}
}

func newAuthSetAmazonCmd(resolve func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-amazon",
		Short: "Store the AWS Translate access keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolve()
			creds, err := credentials.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "\n%sAWS Translate Access Key Setup%s\n", colorBlue, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			if creds.Amazon != nil && creds.Amazon.AccessKey != "" {
				fmt.Fprintf(os.Stderr, "  Current access key: %s%s%s\n", colorYellow, credentials.MaskKey(creds.Amazon.AccessKey), colorReset)
			}
			accessKey, err := promptLine("  Enter access key ID: ")
			if err != nil {
				return err
			}
			if accessKey == "" {
				return fmt.Errorf("no access key provided")
			}
			secretKey, err := promptLine("  Enter secret access key: ")
			if err != nil {
				return err
			}
			if secretKey == "" {
				return fmt.Errorf("no secret key provided")
			}

			creds.SetAmazon(accessKey, secretKey)
			if err := creds.Save(path); err != nil {
				return err
			}
			logSuccess(i18n.T("Amazon credentials saved"))
			return nil
		},
	}
}

func newAuthShowCmd(resolve func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show configured credentials (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credentials.Load(resolve())
			if err != nil {
				return err
			}
			if creds.OpenAI == nil && creds.Amazon == nil {
				logWarning(i18n.T("No credentials configured"))
				return nil
			}
			if creds.OpenAI != nil {
				fmt.Fprintf(os.Stderr, "  %-8s key: %s\n", "openai", credentials.MaskKey(creds.OpenAI.Key))
			}
			if creds.Amazon != nil {
				fmt.Fprintf(os.Stderr, "  %-8s access key: %s\n", "amazon", credentials.MaskKey(creds.Amazon.AccessKey))
			}
			return nil
		},
	}
}

func newAuthClearCmd(resolve func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolve()
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return err
			}
			logSuccess(i18n.T("Credentials cleared"))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// languages (saved target language selection)
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Manage the saved target language list",
		Long: `Manage the saved target language list.

The list is used by 'jsontrans translate' when --langs is not given.
It persists in ` + credentials.DataDir() + `.`,
	}

	cmd.AddCommand(
		newLanguagesListCmd(),
		newLanguagesAddCmd(),
		newLanguagesRemoveCmd(),
	)

	return cmd
}

func newLanguagesListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the saved target languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				codes := langs.Codes()
				sort.Strings(codes)
				for _, code := range codes {
					meta := langs.Resolve(code)
					fmt.Printf("  %s %-7s %s\n", meta.Flag, code, meta.Name)
				}
				return nil
			}
			sel := langs.LoadSelection(credentials.DataDir())
			for _, code := range sel.Codes() {
				meta := langs.Resolve(code)
				fmt.Printf("  %s %-7s %s\n", meta.Flag, code, meta.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every supported language instead")

	return cmd
}

func newLanguagesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <code>",
		Short: "Add a language to the saved list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := langs.LoadSelection(credentials.DataDir())
			if err := sel.Add(args[0]); err != nil {
				return err
			}
			if err := sel.Save(); err != nil {
				return err
			}
			logSuccess(i18n.T("Language %s added"), langs.Canonicalize(args[0]))
			return nil
		},
	}
}

func newLanguagesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code>",
		Short: "Remove a language from the saved list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := langs.LoadSelection(credentials.DataDir())
			if err := sel.Remove(args[0]); err != nil {
				return err
			}
			if err := sel.Save(); err != nil {
				return err
			}
			logSuccess(i18n.T("Language %s removed"), langs.Canonicalize(args[0]))
			return nil
		},
	}
}
