// Command kokidetect finds libkoki markers in image files or camera frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/gokoki/internal/app"
	"github.com/ayusman/gokoki/internal/capture"
	"github.com/ayusman/gokoki/internal/detector"
	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/libkoki"
	"github.com/ayusman/gokoki/internal/server"
	"github.com/ayusman/gokoki/internal/store"
)

// LibDirEnv overrides the default libkoki directory when -lib is not given.
const LibDirEnv = "KOKI_LIB_DIR"

type options struct {
	libDir   string
	images   []string
	camera   int
	device   string
	size     float64
	dbPath   string
	frames   int
	logLevel string
	crc      int
	httpAddr string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("kokidetect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	var image string
	fs.StringVar(&o.libDir, "lib", "", "directory containing "+libkoki.LibraryName+" (default $"+LibDirEnv+" or "+libkoki.DefaultDir+")")
	fs.StringVar(&image, "image", "", "image file to search; further files may follow as arguments")
	fs.IntVar(&o.camera, "camera", -1, "camera index to read frames from")
	fs.StringVar(&o.device, "device", "", "V4L device to query, e.g. /dev/video0")
	fs.Float64Var(&o.size, "size", float64(detector.DefaultConfig().MarkerSize), "marker edge length in metres")
	fs.StringVar(&o.dbPath, "db", "", "sqlite file to record detections in")
	fs.IntVar(&o.frames, "frames", 0, "stop the camera after this many frames (0 runs until interrupted)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level")
	fs.IntVar(&o.crc, "crc", -1, "print the CRC-12 of a byte value and exit")
	fs.StringVar(&o.httpAddr, "http", "", "serve the sighting log on this address, e.g. :8080 (needs -db)")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if image != "" {
		o.images = append(o.images, image)
	}
	o.images = append(o.images, fs.Args()...)

	if o.libDir == "" {
		o.libDir = os.Getenv(LibDirEnv)
	}
	if o.libDir == "" {
		o.libDir = libkoki.DefaultDir
	}

	if o.crc > 0xff {
		return o, fmt.Errorf("-crc %d does not fit in a byte", o.crc)
	}
	if o.size <= 0 {
		return o, fmt.Errorf("-size must be positive")
	}
	if o.httpAddr != "" && o.dbPath == "" {
		return o, errors.New("-http needs -db")
	}
	if o.crc < 0 && o.device == "" && o.camera < 0 && len(o.images) == 0 && o.httpAddr == "" {
		return o, errors.New("nothing to do: give -image, -camera, -device, -http or -crc")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logrus.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		logrus.WithError(err).Error("kokidetect failed")
		os.Exit(1)
	}
}

func (o options) needsLibrary() bool {
	return o.crc >= 0 || o.device != "" || o.camera >= 0 || len(o.images) > 0
}

func run(ctx context.Context, opts options, out io.Writer) error {
	var st *store.Store
	if opts.dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		var err error
		st, err = store.New(opts.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	if !opts.needsLibrary() {
		return serve(ctx, opts.httpAddr, server.Config{Store: st})
	}

	lib, err := libkoki.Open(opts.libDir)
	if err != nil {
		return err
	}
	defer lib.Close()

	if opts.crc >= 0 {
		sum, err := lib.Checksum12(koki.Uint8(opts.crc))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "crc12(%d) = %s\n", opts.crc, sum)
		return nil
	}

	if opts.device != "" {
		if err := describeDevice(lib, opts.device, out); err != nil {
			return err
		}
	}

	det := detector.NewKokiDetector(lib, detector.Config{MarkerSize: float32(opts.size)})
	defer det.Close()

	for _, path := range opts.images {
		if err := detectImage(det, st, path, out); err != nil {
			return err
		}
	}

	if opts.camera >= 0 {
		return runCamera(ctx, opts, det, st, out)
	}
	if opts.httpAddr != "" {
		return serve(ctx, opts.httpAddr, server.Config{Store: st})
	}
	return nil
}

// serve runs the HTTP API until ctx is done.
func serve(ctx context.Context, addr string, cfg server.Config) error {
	srv := &http.Server{Addr: addr, Handler: server.New(cfg)}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"function": "serve",
			"addr":     addr,
		}).Info("Serving sighting log")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func describeDevice(v4l capture.V4L, path string, out io.Writer) error {
	dev := capture.NewDevice(v4l, path)
	if err := dev.Open(); err != nil {
		return err
	}
	defer dev.Close()

	f, err := dev.Format()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", path, f)
	return nil
}

func detectImage(det detector.Detector, st *store.Store, path string, out io.Writer) error {
	img := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("cannot read image %s", path)
	}

	p := app.NewPipeline(nil, det, app.Config{Store: st, Source: path})
	res, err := p.Process(&img)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	printResult(out, path, res)
	return nil
}

func runCamera(ctx context.Context, opts options, det detector.Detector, st *store.Store, out io.Writer) error {
	cfg := capture.DefaultCameraConfig()
	cfg.DeviceID = opts.camera
	cam := capture.NewCamera(cfg)

	source := fmt.Sprintf("camera:%d", opts.camera)
	a := app.New(app.Config{Store: st, Source: source, MaxFrames: opts.frames}, cam, det)
	a.Pipeline().OnResult(func(res app.Result) {
		if len(res.Markers) > 0 {
			printResult(out, source, res)
		}
	})

	if opts.httpAddr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			cfg := server.Config{Store: st, Pipeline: a.Pipeline()}
			if err := serve(srvCtx, opts.httpAddr, cfg); err != nil {
				logrus.WithError(err).Error("HTTP server failed")
			}
		}()
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	err := a.Wait()
	return errors.Join(err, a.Stop())
}

func printResult(out io.Writer, source string, res app.Result) {
	fmt.Fprintf(out, "%s: %d marker(s) in %dx%d frame\n", source, len(res.Markers), res.Width, res.Height)
	for _, m := range res.Markers {
		fmt.Fprintln(out, m)
	}
}
