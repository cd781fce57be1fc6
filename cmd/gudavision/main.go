// Command gudavision runs an image through letterbox preprocessing,
// pools the result to per-channel means and suppresses a sample set of
// boxes, logging each step.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	gv "github.com/LynnColeArt/gudavision"
	"github.com/LynnColeArt/gudavision/allocator"
	"github.com/LynnColeArt/gudavision/internal/config"
	"github.com/LynnColeArt/gudavision/internal/logger"
	"github.com/LynnColeArt/gudavision/iou3d"
	"github.com/LynnColeArt/gudavision/pooling"
	"github.com/LynnColeArt/gudavision/preprocess"
)

type options struct {
	configPath string
	imagePath  string
	size       int
	maxSide    int
	thresh     float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "configuration file (YAML)")
	flag.StringVar(&opts.imagePath, "image", "", "input image; a synthetic gradient is used when empty")
	flag.IntVar(&opts.size, "size", 640, "square network input size")
	flag.IntVar(&opts.maxSide, "max-side", 4096, "downscale larger images on the host first")
	flag.Float64Var(&opts.thresh, "nms", 0.5, "NMS IoU threshold")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "gudavision: %+v\n", err)
		os.Exit(1)
	}
}

// run owns every resource it creates, so all deferred cleanup happens
// before main decides the exit code.
func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := logger.New(cfg.Log.Debug)
	defer func() { _ = log.Sync() }()

	engine := gv.NewEngine(append(cfg.RuntimeOptions(), gv.WithLogger(log))...)
	defer engine.Destroy()

	log.Info("runtime ready", zap.String("build", gv.BuildInfo()))

	img, err := loadImage(opts.imagePath)
	if err != nil {
		return errors.Wrap(err, "load image")
	}
	img = preprocess.Thumbnail(img, opts.maxSide)

	means, tf, err := preprocessAndPool(engine, img, opts.size, log)
	if err != nil {
		return errors.Wrap(err, "preprocess")
	}
	log.Info("preprocessed",
		zap.Float32("scale", tf.Scale),
		zap.Float32("padX", tf.PadX),
		zap.Float32("padY", tf.PadY),
		zap.Float32s("channelMeans", means))

	keep, err := suppressSample(engine, float32(opts.thresh))
	if err != nil {
		return errors.Wrap(err, "nms")
	}
	log.Info("nms", zap.Int64s("keep", keep))

	allocated, peak := engine.MemoryStats()
	log.Debug("memory", zap.Int64("allocated", allocated), zap.Int64("peak", peak))
	return nil
}

func loadImage(path string) (image.Image, error) {
	if path == "" {
		img := image.NewRGBA(image.Rect(0, 0, 320, 240))
		for y := 0; y < 240; y++ {
			for x := 0; x < 320; x++ {
				img.Set(x, y, color.RGBA{R: uint8(x * 255 / 319), G: uint8(y * 255 / 239), B: 128, A: 255})
			}
		}
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()
	img, _, err := preprocess.DecodeImage(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

func preprocessAndPool(rt gv.Runtime, img image.Image, size int, log *zap.Logger) ([]float32, preprocess.Transform, error) {
	pix, w, h := preprocess.ImageToHWC(img, true)
	dev := allocator.Device(rt).WithLogger(log)

	src, err := allocator.Acquire(dev, len(pix))
	if err != nil {
		return nil, preprocess.Transform{}, err
	}
	defer src.Release()
	tensor, err := allocator.Acquire(dev, 3*size*size*4)
	if err != nil {
		return nil, preprocess.Transform{}, err
	}
	defer tensor.Release()
	pooled, err := allocator.Acquire(dev, 3*4)
	if err != nil {
		return nil, preprocess.Transform{}, err
	}
	defer pooled.Release()

	if err := gv.Memcpy(src.Ptr(), pix, len(pix), gv.MemcpyHostToDevice); err != nil {
		return nil, preprocess.Transform{}, err
	}
	tf, err := preprocess.YoloPreprocess(rt, nil, src.Ptr(), w, h, tensor.Ptr(), size, size, []float32{114, 114, 114})
	if err != nil {
		return nil, tf, err
	}
	err = pooling.AdaptivePoolTensors(rt, nil, pooling.Avg,
		pooled.View(gv.Float32, 1, 3, 1, 1),
		tensor.View(gv.Float32, 1, 3, int64(size), int64(size)))
	if err != nil {
		return nil, tf, err
	}
	if st := rt.StreamSynchronize(nil); st != gv.Success {
		return nil, tf, st.Err("StreamSynchronize")
	}
	means := make([]float32, 3)
	if err := gv.Memcpy(means, pooled.Ptr(), len(means)*4, gv.MemcpyDeviceToHost); err != nil {
		return nil, tf, err
	}
	return means, tf, nil
}

func suppressSample(rt gv.Runtime, thresh float32) ([]int64, error) {
	boxes := []iou3d.Box3D{
		{X: 0, Y: 0, DX: 2, DY: 1, DZ: 1.5},
		{X: 0.1, Y: 0.05, DX: 2, DY: 1, DZ: 1.5, Heading: 0.1},
		{X: 5, Y: 5, DX: 4, DY: 2, DZ: 1.6, Heading: 1.2},
		{X: 5.2, Y: 5.1, DX: 4, DY: 2, DZ: 1.6, Heading: 1.25},
		{X: -8, Y: 3, DX: 0.8, DY: 0.8, DZ: 1.8},
	}
	buf, err := allocator.Acquire(allocator.Device(rt), len(boxes)*iou3d.BoxDim*4)
	if err != nil {
		return nil, err
	}
	defer buf.Release()
	if err := iou3d.Upload(buf.Ptr(), boxes); err != nil {
		return nil, err
	}
	return iou3d.NMS(rt, nil, buf.Ptr(), len(boxes), thresh)
}
