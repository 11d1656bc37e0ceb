package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ---------------------------------------------------------------------------
// Pexels Image Search Service
// Searches portrait stock photos and downloads the originals into a task's
// working directory. May return fewer images than requested, or none.
// ---------------------------------------------------------------------------

const pexelsBaseURL = "https://api.pexels.com/v1/search"

// ImageService is the image-search collaborator the pipeline consumes.
type ImageService interface {
	// Search returns local paths of downloaded images for the term, in API
	// result order. A term with no results yields an empty slice, not an
	// error.
	Search(ctx context.Context, term, outputDir string, amount int) ([]string, error)
}

type PexelsService struct {
	apiKey      string
	orientation string
	client      *http.Client
}

var _ ImageService = (*PexelsService)(nil)

func NewPexelsService(apiKey string) *PexelsService {
	return &PexelsService{
		apiKey:      apiKey,
		orientation: "portrait",
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

type pexelsPhoto struct {
	ID  int64 `json:"id"`
	Src struct {
		Original string `json:"original"`
	} `json:"src"`
}

type pexelsSearchResponse struct {
	Photos []pexelsPhoto `json:"photos"`
}

func (s *PexelsService) Search(ctx context.Context, term, outputDir string, amount int) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	perPage := amount
	if perPage > 5 {
		perPage = 5
	}
	searchURL := fmt.Sprintf("%s?query=%s&orientation=%s&per_page=%d",
		pexelsBaseURL, url.QueryEscape(term), s.orientation, perPage)

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)

	log.Printf("[Pexels] Searching images (term=%q, amount=%d)", term, amount)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pexels returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var searchResp pexelsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode pexels response: %w", err)
	}

	var saved []string
	for idx, photo := range searchResp.Photos {
		if len(saved) >= amount {
			break
		}

		name := fmt.Sprintf("%d.jpg", photo.ID)
		if photo.ID == 0 {
			name = fmt.Sprintf("noid_%d.jpg", idx)
		}
		dest := filepath.Join(outputDir, name)

		if err := s.download(ctx, photo.Src.Original, dest); err != nil {
			log.Printf("[Pexels] Skipping photo %d: %v", photo.ID, err)
			continue
		}
		saved = append(saved, dest)
	}

	log.Printf("[Pexels] Downloaded %d image(s) for %q", len(saved), term)
	return saved, nil
}

func (s *PexelsService) download(ctx context.Context, srcURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", srcURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write image file: %w", err)
	}

	return nil
}
