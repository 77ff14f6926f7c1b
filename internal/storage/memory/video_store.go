// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trendlens/collector/internal/trending"
)

// Sentinels shared with the Postgres implementations.
var (
	ErrNotFound      = trending.ErrNotFound
	ErrAlreadyExists = trending.ErrAlreadyExists
)

// VideoStore keeps videos and feed hits in process memory. It implements
// trending.VideoStore, trending.FeedLog and trending.ReportStore.
type VideoStore struct {
	mu     sync.RWMutex
	videos map[string]trending.Video
	hits   map[hitKey]trending.FeedHit
	order  []hitKey
}

type hitKey struct {
	runID, videoID, region, category string
}

// NewVideoStore constructs a VideoStore.
func NewVideoStore() *VideoStore {
	return &VideoStore{
		videos: make(map[string]trending.Video),
		hits:   make(map[hitKey]trending.FeedHit),
	}
}

// UpsertVideo creates the video or refreshes its counters and last-seen.
func (s *VideoStore) UpsertVideo(_ context.Context, v trending.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.videos[v.VideoID]
	if !ok {
		s.videos[v.VideoID] = v
		return nil
	}
	existing.ViewCount = v.ViewCount
	existing.LikeCount = v.LikeCount
	existing.CommentCount = v.CommentCount
	existing.LastSeenAt = v.LastSeenAt
	s.videos[v.VideoID] = existing
	return nil
}

// GetVideo fetches a video by source ID.
func (s *VideoStore) GetVideo(_ context.Context, videoID string) (trending.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	if !ok {
		return trending.Video{}, ErrNotFound
	}
	return v, nil
}

// AppendFeedHit records the hit unless its key already exists.
func (s *VideoStore) AppendFeedHit(_ context.Context, hit trending.FeedHit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hitKey{hit.RunID, hit.VideoID, hit.RegionCode, hit.CategoryID}
	if _, exists := s.hits[key]; exists {
		return false, nil
	}
	s.hits[key] = hit
	s.order = append(s.order, key)
	return true, nil
}

// Hits returns all recorded feed hits in append order.
func (s *VideoStore) Hits() []trending.FeedHit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trending.FeedHit, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.hits[key])
	}
	return out
}

// ListTrending filters stored hits, keeps the best observation per
// video, and paginates ordered by views per hour descending.
func (s *VideoStore) ListTrending(_ context.Context, f trending.TrendingFilters) ([]trending.TrendingRow, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Time{}
	if f.HoursAgo > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(f.HoursAgo) * time.Hour)
	}

	best := make(map[string]trending.FeedHit)
	for _, hit := range s.hits {
		video, ok := s.videos[hit.VideoID]
		if !ok || !s.matches(hit, video, f, cutoff) {
			continue
		}
		if prev, seen := best[hit.VideoID]; !seen || hit.ViewsPerHour > prev.ViewsPerHour {
			best[hit.VideoID] = hit
		}
	}

	rows := make([]trending.TrendingRow, 0, len(best))
	for _, hit := range best {
		video := s.videos[hit.VideoID]
		rows = append(rows, trending.TrendingRow{
			VideoID:      hit.VideoID,
			Title:        video.Title,
			ChannelTitle: video.ChannelTitle,
			ThumbnailURL: video.ThumbnailURL,
			PublishedAt:  video.PublishedAt,
			IsShort:      video.IsShort,
			ViewCount:    video.ViewCount,
			ViewsPerHour: hit.ViewsPerHour,
			Bucket:       hit.Bucket,
			NicheTags:    hit.NicheTags,
			RegionCode:   hit.RegionCode,
			CategoryID:   hit.CategoryID,
			SeenAt:       hit.SeenAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ViewsPerHour > rows[j].ViewsPerHour })

	total := int64(len(rows))
	start := f.Offset
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return rows[start:end], total, nil
}

func (s *VideoStore) matches(hit trending.FeedHit, video trending.Video, f trending.TrendingFilters, cutoff time.Time) bool {
	if !cutoff.IsZero() && hit.SeenAt.Before(cutoff) {
		return false
	}
	if f.Region != "" && hit.RegionCode != f.Region {
		return false
	}
	if f.Bucket != "" && string(hit.Bucket) != f.Bucket {
		return false
	}
	if f.Category != "" && hit.CategoryID != f.Category {
		return false
	}
	if f.IsShort != nil && video.IsShort != *f.IsShort {
		return false
	}
	if f.Niche != "" {
		found := false
		for _, tag := range hit.NicheTags {
			if tag == f.Niche {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Overview summarizes the stored hits over 24h and 7d windows.
func (s *VideoStore) Overview(_ context.Context) (trending.OverviewStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	out := trending.OverviewStats{
		Last24h: newWindowStats(),
		Last7d:  newWindowStats(),
	}
	unique24h := make(map[string]struct{})
	unique7d := make(map[string]struct{})

	for _, hit := range s.hits {
		age := now.Sub(hit.SeenAt)
		video, haveVideo := s.videos[hit.VideoID]
		isShort := haveVideo && video.IsShort
		if age <= 7*24*time.Hour {
			out.Last7d.TotalHits++
			out.Last7d.ByBucket[hit.Bucket]++
			unique7d[hit.VideoID] = struct{}{}
			if isShort {
				out.Last7d.Shorts++
			} else {
				out.Last7d.LongForm++
			}
		}
		if age <= 24*time.Hour {
			out.Last24h.TotalHits++
			out.Last24h.ByBucket[hit.Bucket]++
			unique24h[hit.VideoID] = struct{}{}
			if isShort {
				out.Last24h.Shorts++
			} else {
				out.Last24h.LongForm++
			}
		}
	}
	out.Last24h.UniqueVideos = int64(len(unique24h))
	out.Last7d.UniqueVideos = int64(len(unique7d))
	return out, nil
}

// ListVideoHits returns the most recent hits of one video.
func (s *VideoStore) ListVideoHits(_ context.Context, videoID string, limit int) ([]trending.FeedHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []trending.FeedHit
	for _, hit := range s.hits {
		if hit.VideoID == videoID {
			hits = append(hits, hit)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].SeenAt.After(hits[j].SeenAt) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func newWindowStats() trending.WindowStats {
	return trending.WindowStats{ByBucket: map[trending.Bucket]int64{
		trending.BucketViral:  0,
		trending.BucketStable: 0,
		trending.BucketLow:    0,
	}}
}
