package video

import (
	"context"
	"fmt"

	"github.com/Believetim-cloud/SkyRiff/internal/config"
	"github.com/Believetim-cloud/SkyRiff/internal/dyuapi"
	"github.com/Believetim-cloud/SkyRiff/internal/logger"
	"github.com/Believetim-cloud/SkyRiff/internal/wallet"
)

type Service struct {
	repo   Store
	ledger wallet.Ledger
	vendor dyuapi.Client
	tariff config.Tariff
}

func NewService(repo Store, ledger wallet.Ledger, vendor dyuapi.Client, tariff config.Tariff) *Service {
	return &Service{repo: repo, ledger: ledger, vendor: vendor, tariff: tariff}
}

func (s *Service) Get(ctx context.Context, videoID, userID int64) (*Asset, error) {
	return s.repo.GetByID(ctx, videoID, userID)
}

func (s *Service) List(ctx context.Context, userID int64, limit int, cursor int64) ([]Asset, error) {
	return s.repo.List(ctx, userID, limit, cursor)
}

// DownloadNoWatermark charges for a clean download and returns a
// short-lived signed URL from the vendor. The charge is taken first
// and refunded if the vendor call fails, so the ledger never shows a
// free download.
func (s *Service) DownloadNoWatermark(ctx context.Context, videoID, userID int64) (string, error) {
	asset, err := s.repo.GetByID(ctx, videoID, userID)
	if err != nil {
		return "", err
	}
	if asset.VendorVideoID == nil || *asset.VendorVideoID == "" {
		return "", ErrNotFound
	}

	ref := &wallet.Ref{Type: wallet.RefVideo, ID: videoID}
	desc := fmt.Sprintf("No-watermark download of video #%d", videoID)
	if _, err := s.ledger.DebitCredits(ctx, userID, s.tariff.DownloadCost, wallet.TypeDownloadSpend, ref, desc); err != nil {
		return "", err
	}

	downloadURL, err := s.vendor.GetDownloadURL(ctx, *asset.VendorVideoID, false)
	if err != nil || downloadURL == "" {
		refundDesc := fmt.Sprintf("Refund for failed download of video #%d", videoID)
		if _, refundErr := s.ledger.CreditCredits(ctx, userID, s.tariff.DownloadCost, wallet.TypeGenRefund, ref, refundDesc); refundErr != nil {
			logger.Errorf("Failed to refund download charge for user %d video %d: %v", userID, videoID, refundErr)
		}
		if err == nil {
			err = fmt.Errorf("vendor returned empty download url")
		}
		return "", fmt.Errorf("failed to get download url: %w", err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, videoID); err != nil {
		logger.Warnf("Failed to bump download count for video %d: %v", videoID, err)
	}
	return downloadURL, nil
}
