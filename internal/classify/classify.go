// Package classify derives classification metadata from raw videos:
// duration, the shorts/long-form split, views per hour, the performance
// bucket and niche tags.
package classify

import (
	"regexp"
	"strconv"
	"time"

	"github.com/trendlens/collector/internal/niche"
	"github.com/trendlens/collector/internal/trending"
)

// ShortMaxSeconds is the hard shorts threshold: at or under this duration
// a video is a short.
const ShortMaxSeconds = 60

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// Thresholds is one viral/stable views-per-hour floor pair. The
// configuration contract is viral > stable; the bucketing step does not
// enforce the ordering.
type Thresholds struct {
	Viral  float64
	Stable float64
}

// Config holds the independently configured threshold pairs for shorts
// and long-form videos.
type Config struct {
	Short Thresholds
	Long  Thresholds
}

// Classifier turns raw source videos into classified ones. It is pure
// apart from reading the injected clock.
type Classifier struct {
	cfg   Config
	clock trending.Clock
}

// New constructs a Classifier.
func New(cfg Config, clock trending.Clock) *Classifier {
	return &Classifier{cfg: cfg, clock: clock}
}

// ParseDuration converts an ISO 8601 duration of the form PT[nH][nM][nS]
// into total whole seconds. Any subset of the components may be absent.
// An expression without a PT section yields zero rather than an error.
func ParseDuration(iso string) int {
	m := durationPattern.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(zeroIfEmpty(m[1]))
	minutes, _ := strconv.Atoi(zeroIfEmpty(m[2]))
	seconds, _ := strconv.Atoi(zeroIfEmpty(m[3]))
	return hours*3600 + minutes*60 + seconds
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// ViewsPerHour divides the view count by the video's age in hours,
// floored at one hour so a video published minutes ago reports its raw
// view count instead of an inflated rate.
func ViewsPerHour(viewCount int64, publishedAt, now time.Time) float64 {
	ageHours := now.Sub(publishedAt).Hours()
	if ageHours < 1 {
		ageHours = 1
	}
	return float64(viewCount) / ageHours
}

// BucketFor maps a views-per-hour rate onto a performance bucket using
// the threshold pair for the video's form.
func (c *Classifier) BucketFor(viewsPerHour float64, isShort bool) trending.Bucket {
	th := c.cfg.Long
	if isShort {
		th = c.cfg.Short
	}
	switch {
	case viewsPerHour >= th.Viral:
		return trending.BucketViral
	case viewsPerHour >= th.Stable:
		return trending.BucketStable
	default:
		return trending.BucketLow
	}
}

// Classify validates and classifies one raw video. It returns (nil, false)
// when a required field is missing or unusable; the caller skips the
// video and continues. There is no error path.
func (c *Classifier) Classify(raw trending.RawVideo) (*trending.ClassifiedVideo, bool) {
	if raw.ID == "" || raw.Title == "" || raw.ChannelID == "" || raw.ChannelTitle == "" ||
		raw.PublishedAt == "" || raw.Duration == "" || raw.ViewCount == nil {
		return nil, false
	}
	publishedAt, err := time.Parse(time.RFC3339, raw.PublishedAt)
	if err != nil {
		return nil, false
	}

	durationSeconds := ParseDuration(raw.Duration)
	isShort := durationSeconds <= ShortMaxSeconds

	viewsPerHour := ViewsPerHour(*raw.ViewCount, publishedAt, c.clock.Now())
	bucket := c.BucketFor(viewsPerHour, isShort)
	tags := niche.Classify(raw.Title, raw.ChannelTitle)

	return &trending.ClassifiedVideo{
		VideoID:         raw.ID,
		Title:           raw.Title,
		ChannelID:       raw.ChannelID,
		ChannelTitle:    raw.ChannelTitle,
		PublishedAt:     publishedAt,
		DurationSeconds: durationSeconds,
		IsShort:         isShort,
		ThumbnailURL:    pickThumbnail(raw.Thumbnails),
		ViewCount:       *raw.ViewCount,
		LikeCount:       raw.LikeCount,
		CommentCount:    raw.CommentCount,
		ViewsPerHour:    viewsPerHour,
		Bucket:          bucket,
		NicheTags:       tags,
	}, true
}

// pickThumbnail prefers the highest resolution available.
func pickThumbnail(t trending.Thumbnails) string {
	for _, url := range []string{t.Maxres, t.High, t.Medium, t.Default} {
		if url != "" {
			return url
		}
	}
	return ""
}
