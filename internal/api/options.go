package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/presets"
	"github.com/bytepress/bytepress/internal/processor"
)

// parseImageOptions resolves request parameters into processor options. The
// output format string is parsed here, once; downstream code only ever sees
// the format enum.
func parseImageOptions(q url.Values) (*processor.Options, error) {
	opts := &processor.Options{}

	if name := q.Get("preset"); name != "" {
		p, ok := presets.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", name, presets.Names)
		}
		opts.TargetSizeBytes = p.TargetSizeKB * 1024
		opts.Quality = p.Quality
	}

	if v := q.Get("target_kb"); v != "" {
		kb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || kb <= 0 {
			return nil, fmt.Errorf("invalid target_kb value: %s", v)
		}
		opts.TargetSizeBytes = kb * 1024
	}

	if v := q.Get("target_percent"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil || pct <= 0 || pct >= 100 {
			return nil, fmt.Errorf("target_percent must be between 0 and 100, got %s", v)
		}
		opts.TargetPercent = pct
	}

	if v := q.Get("tolerance"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol < 0 || tol > 0.5 {
			return nil, fmt.Errorf("tolerance must be between 0 and 0.5, got %s", v)
		}
		opts.ToleranceRatio = tol
	}

	if v := q.Get("format"); v != "" {
		f, err := format.Parse(v)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}

	if v := q.Get("quality"); v != "" {
		quality, err := strconv.Atoi(v)
		if err != nil || quality < 1 || quality > 100 {
			return nil, fmt.Errorf("quality must be between 1 and 100, got %s", v)
		}
		opts.Quality = quality
	}

	var err error
	if opts.Width, err = parseDimension(q, "width"); err != nil {
		return nil, err
	}
	if opts.Height, err = parseDimension(q, "height"); err != nil {
		return nil, err
	}

	if v := q.Get("fit"); v != "" {
		switch v {
		case "fit", "fill", "cover", "contain":
			opts.Fit = v
		default:
			return nil, fmt.Errorf("unsupported fit mode: %s (supported: fit, fill, cover, contain)", v)
		}
	}

	if opts.CropX, err = parseCoord(q, "crop_x"); err != nil {
		return nil, err
	}
	if opts.CropY, err = parseCoord(q, "crop_y"); err != nil {
		return nil, err
	}
	if opts.CropWidth, err = parseDimension(q, "crop_w"); err != nil {
		return nil, err
	}
	if opts.CropHeight, err = parseDimension(q, "crop_h"); err != nil {
		return nil, err
	}

	if v := q.Get("angle"); v != "" {
		angle, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid angle value: %s", v)
		}
		switch angle {
		case 0, 90, 180, 270:
			opts.Angle = angle
		default:
			return nil, fmt.Errorf("angle must be 90, 180 or 270, got %d", angle)
		}
	}
	opts.FlipHorizontal = q.Get("flip_h") == "true"
	opts.FlipVertical = q.Get("flip_v") == "true"

	return opts, nil
}

func parseDimension(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s", key, v)
	}
	if n < 1 || n > 10000 {
		return 0, fmt.Errorf("%s must be between 1 and 10000, got %d", key, n)
	}
	return n, nil
}

func parseCoord(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s value: %s", key, v)
	}
	return n, nil
}

// resultKey derives the cache key for a processed payload: content hash plus
// the options that shaped the output.
func resultKey(data []byte, op string, opts *processor.Options) string {
	h := sha256.New()
	h.Write(data)
	_, _ = fmt.Fprintf(h, "|op=%s,w=%d,h=%d,q=%d,f=%s,fit=%s,t=%d,p=%.2f,tol=%.3f,cx=%d,cy=%d,cw=%d,ch=%d,a=%d,fh=%t,fv=%t",
		op, opts.Width, opts.Height, opts.Quality, opts.Format, opts.Fit,
		opts.TargetSizeBytes, opts.TargetPercent, opts.ToleranceRatio,
		opts.CropX, opts.CropY, opts.CropWidth, opts.CropHeight,
		opts.Angle, opts.FlipHorizontal, opts.FlipVertical)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
