package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ByLCY/shinapi/asset"
	"github.com/ByLCY/shinapi/card"
	"github.com/ByLCY/shinapi/config"
	"github.com/ByLCY/shinapi/fonts"
	"github.com/ByLCY/shinapi/layout"
	"github.com/ByLCY/shinapi/logger"
	canvasrenderer "github.com/ByLCY/shinapi/renderer/canvas"
	"github.com/ByLCY/shinapi/server"
	"github.com/ByLCY/shinapi/upstream"
)

const usage = `用法:
  shinapi [serve] [-config config.toml]
  shinapi render -template tweet|welcome -data '{"text":"Hello"}' -out card.png [-debug plan.json]`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	var err error
	switch cmd {
	case "serve":
		err = serve(args)
	case "render":
		err = render(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s 失败: %v", cmd, err)
	}
}

// app 是 serve 与 render 共用的组装结果。
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	closer io.Closer
	cards  *card.Engine
}

// setup 串联配置、日志、配色、字体、素材与卡片引擎。
func setup(configPath string, debug bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	lg, closer, err := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Resolve(cfg.Log.File),
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	if err != nil {
		return nil, err
	}
	for _, key := range cfg.Unknown {
		lg.Warn("unknown config key", "key", key)
	}

	themes, err := loadThemes(cfg)
	if err != nil {
		closer.Close()
		return nil, err
	}

	var families []*fonts.Family
	for _, spec := range cfg.Fonts.Families {
		fam, err := spec.Load(cfg.Resolve(cfg.Fonts.Dir))
		if err != nil {
			closer.Close()
			return nil, err
		}
		logger.Trace(lg, "font family loaded", "name", fam.Name, "styles", len(fam.Styles))
		families = append(families, fam)
	}
	backend, err := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Families: families})
	if err != nil {
		closer.Close()
		return nil, err
	}

	resolver, err := asset.NewResolver(asset.Options{
		Timeout:      cfg.Fetch.Timeout(),
		MaxBytes:     cfg.Fetch.MaxBytes,
		Retries:      cfg.Fetch.Retries,
		UserAgent:    cfg.Fetch.UserAgent,
		AllowedHosts: cfg.Fetch.AllowedHosts,
		Logger:       lg,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	tweet := layout.DefaultTweetConfig()
	tweet.Scale = cfg.Render.TweetScale
	welcome := layout.DefaultWelcomeConfig()
	welcome.Scale = cfg.Render.WelcomeScale
	if cfg.Render.WelcomeStrict {
		welcome.Validation = layout.RequireFields
	}
	cards, err := card.New(card.Options{
		Themes:   themes,
		Resolver: resolver,
		Backend:  backend,
		Tweet:    tweet,
		Welcome:  welcome,
		Debug:    layout.DebugOptions{Guides: debug},
		Logger:   lg,
	})
	if err != nil {
		closer.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: lg, closer: closer, cards: cards}, nil
}

func loadThemes(cfg *config.Config) (*layout.Themes, error) {
	if cfg.Render.ThemesFile == "" {
		return layout.DefaultThemes()
	}
	path := cfg.Resolve(cfg.Render.ThemesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开配色文件 %s: %w", path, err)
	}
	defer f.Close()
	return layout.ParseThemes(path, f)
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "配置文件路径")
	_ = fs.Parse(args)

	a, err := setup(*configPath, false)
	if err != nil {
		return err
	}
	defer a.closer.Close()
	cfg := a.cfg

	up := upstream.NewClient(upstream.Options{
		FBDownloadURL: cfg.Upstream.FBDownloadURL,
		TempMailURL:   cfg.Upstream.TempMailURL,
		Timeout:       cfg.Fetch.Timeout(),
		Retries:       cfg.Fetch.Retries,
		UserAgent:     cfg.Fetch.UserAgent,
		Logger:        a.log,
	})
	srv, err := server.New(server.Options{
		Site:         cfg.Site,
		DocsDir:      cfg.Resolve(cfg.Server.DocsDir),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Cards:        a.cards,
		Upstream:     up,
		Logger:       a.log,
	})
	if err != nil {
		return err
	}
	for _, c := range srv.Endpoints() {
		for _, it := range c.Items {
			logger.Ready(a.log, "endpoint loaded", "category", c.Name, "name", it.Name, "path", it.Path)
		}
	}

	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		logger.Ready(a.log, "server listening", "addr", cfg.Server.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}

func render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径（可选）")
	template := fs.String("template", card.Tweet, "卡片模板：tweet 或 welcome")
	dataJSON := fs.String("data", "{}", "卡片参数 JSON")
	output := fs.String("out", "output/card.png", "PNG 输出路径")
	debug := fs.String("debug", "", "绘制计划调试 JSON 输出路径，同时绘制参考线")
	_ = fs.Parse(args)

	var params card.Params
	if err := json.Unmarshal([]byte(*dataJSON), &params); err != nil {
		return fmt.Errorf("解析 data JSON 失败: %w", err)
	}

	a, err := setup(*configPath, *debug != "")
	if err != nil {
		return err
	}
	defer a.closer.Close()

	ctx := context.Background()
	if *debug != "" {
		plan, err := a.cards.Plan(ctx, *template, params)
		if err != nil {
			return err
		}
		if err := writeFile(*debug, nil, func(path string) error { return layout.WriteDebugJSON(plan, path) }); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	data, err := a.cards.Render(ctx, *template, params)
	if err != nil {
		return err
	}
	if err := writeFile(*output, data, nil); err != nil {
		return fmt.Errorf("写入 PNG 文件失败: %w", err)
	}
	fmt.Printf("已生成卡片：%s\n", *output)
	return nil
}

// writeFile 创建父目录后写入 data，或交给 write 自行写入。
func writeFile(path string, data []byte, write func(string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if write != nil {
		return write(path)
	}
	return os.WriteFile(path, data, 0o644)
}
