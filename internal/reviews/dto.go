package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecomarket/marketplace-backend/internal/users"
	"github.com/ecomarket/marketplace-backend/pkg/db/models"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewDTO is a rating plus the reviewer's public card.
type ReviewDTO struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"productId"`
	BuyerID   string            `json:"buyerId"`
	Rating    int               `json:"rating"`
	Comment   *string           `json:"comment"`
	CreatedAt time.Time         `json:"createdAt"`
	Buyer     *users.SummaryDTO `json:"buyer,omitempty"`
}

// CreateReviewInput is the validated payload for a new review.
type CreateReviewInput struct {
	Rating  int
	Comment *string
}

func FromModel(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		ProductID: r.ProductID,
		BuyerID:   r.BuyerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		Buyer:     users.SummaryFromModel(r.Buyer),
	}
}

// FromModels always returns a non-nil slice so empty lists encode as [].
func FromModels(list []models.Review) []ReviewDTO {
	out := make([]ReviewDTO, 0, len(list))
	for _, r := range list {
		out = append(out, FromModel(r))
	}
	return out
}
