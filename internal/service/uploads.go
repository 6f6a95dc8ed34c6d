package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gitmanhimanshu/verdantia/internal/models"
	"github.com/gitmanhimanshu/verdantia/internal/session"
)

// plantKeywords is the filename allow-list for proof uploads. The name must
// mention what the file claims to show.
var plantKeywords = []string{
	"plant", "tree", "seed", "sapling", "green", "leaf",
	"garden", "forest", "nursery", "grow", "vegetation", "flora",
}

// ValidateUpload applies the local gate: media MIME type and a plant-related
// filename. It runs before any upstream traffic.
func ValidateUpload(filename, contentType string) error {
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		return fmt.Errorf("%w: only image or video files are accepted", ErrValidation)
	}
	lower := strings.ToLower(filename)
	for _, kw := range plantKeywords {
		if strings.Contains(lower, kw) {
			return nil
		}
	}
	return fmt.Errorf("%w: filename must mention the planting (e.g. tree, sapling, garden)", ErrValidation)
}

// Upload validates, then streams the proof to the platform. Rejections
// surface as transient alerts on the session's feed.
func (s *Service) Upload(ctx context.Context, cur session.Current, filename, contentType string, file io.Reader) (models.UploadProof, error) {
	if err := ValidateUpload(filename, contentType); err != nil {
		s.PushAlert(cur.Session.ID, "error", err.Error())
		return models.UploadProof{}, err
	}
	proof, err := s.up.UploadVideo(ctx, cur.UpstreamToken, filename, contentType, file)
	if err != nil {
		return models.UploadProof{}, s.mapUpstreamErr(ctx, cur, err)
	}
	s.PushAlert(cur.Session.ID, "success", "Proof uploaded, pending review")
	_ = s.store.InsertActivity(ctx, cur.User.Username, "proof_upload", proof.ID, fmt.Sprintf(`{"filename":%q}`, filename))
	return proof, nil
}

func (s *Service) MyUploads(ctx context.Context, cur session.Current) ([]models.UploadProof, error) {
	out, err := s.up.MyVideos(ctx, cur.UpstreamToken)
	if err != nil {
		return nil, s.mapUpstreamErr(ctx, cur, err)
	}
	return out, nil
}
