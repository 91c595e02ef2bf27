package bid

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/notify"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/validation"
)

// Observer is told about every placed bid.
type Observer interface {
	BidCreated()
}

type nopObserver struct{}

func (nopObserver) BidCreated() {}

type Service struct {
	DB       *gorm.DB
	Notifier notify.Emitter
	Observer Observer
	Log      *logrus.Entry
}

func NewService(db *gorm.DB, notifier notify.Emitter, log *logrus.Entry) *Service {
	return &Service{DB: db, Notifier: notifier, Observer: nopObserver{}, Log: log}
}

type CreateInput struct {
	ProjectID    uuid.UUID `json:"project_id" validate:"required"`
	Amount       int64     `json:"amount" validate:"gt=0"`
	DeliveryTime int       `json:"delivery_time" validate:"gt=0"`
	Message      string    `json:"message" validate:"required"`
}

type UpdateInput struct {
	Amount       *int64  `json:"amount" validate:"omitempty,gt=0"`
	DeliveryTime *int    `json:"delivery_time" validate:"omitempty,gt=0"`
	Message      *string `json:"message"`
}

func (s *Service) Create(ctx context.Context, seller *models.User, in CreateInput) (*models.Bid, error) {
	if !seller.IsSeller() {
		return nil, apperr.Forbidden("only sellers can place bids")
	}
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		p     models.Project
		buyer models.User
		b     models.Bid
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", in.ProjectID).Error
		if err != nil {
			return notFoundOr(err, "project")
		}
		if p.Status != models.ProjectPending {
			return apperr.Precondition("project is no longer accepting bids")
		}

		var existing int64
		if err := tx.Model(&models.Bid{}).
			Where("project_id = ? AND seller_id = ?", p.ID, seller.ID).
			Count(&existing).Error; err != nil {
			return apperr.Internal("check existing bid", err)
		}
		if existing > 0 {
			return apperr.Conflict("you already placed a bid on this project")
		}

		b = models.Bid{
			Amount:       in.Amount,
			DeliveryTime: in.DeliveryTime,
			Message:      in.Message,
			Status:       models.BidPending,
			ProjectID:    p.ID,
			SellerID:     seller.ID,
		}
		if err := tx.Create(&b).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("you already placed a bid on this project")
			}
			return apperr.Internal("create bid", err)
		}
		if err := tx.First(&buyer, "id = ?", p.BuyerID).Error; err != nil {
			return apperr.Internal("load buyer", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.Observer.BidCreated()
	s.Log.WithFields(logrus.Fields{"bid_id": b.ID, "project_id": p.ID, "seller_id": seller.ID}).Info("bid placed")

	bidID := b.ID
	s.Notifier.Emit(notify.Event{
		Kind:         notify.BidCreated,
		UserID:       buyer.ID,
		Email:        buyer.Email,
		Name:         buyer.Name,
		ProjectID:    p.ID,
		ProjectTitle: p.Title,
		BidID:        &bidID,
		Amount:       b.Amount,
		ActorName:    seller.Name,
	})
	return &b, nil
}

func (s *Service) Update(ctx context.Context, seller *models.User, id uuid.UUID, in UpdateInput) (*models.Bid, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	changes := map[string]any{}
	if in.Amount != nil {
		changes["amount"] = *in.Amount
	}
	if in.DeliveryTime != nil {
		changes["delivery_time"] = *in.DeliveryTime
	}
	if in.Message != nil {
		m := strings.TrimSpace(*in.Message)
		if m == "" {
			fields := apperr.FieldErrors{}
			fields.Add("message", "must not be empty")
			return nil, apperr.Validation("Validation error", fields)
		}
		changes["message"] = m
	}

	var b models.Bid
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadEditable(tx, seller, id, &b); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&b).Updates(changes).Error; err != nil {
			return apperr.Internal("update bid", err)
		}
		return tx.First(&b, "id = ?", id).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &b, nil
}

func (s *Service) Delete(ctx context.Context, seller *models.User, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Bid
		if err := loadEditable(tx, seller, id, &b); err != nil {
			return err
		}
		if err := tx.Delete(&models.Bid{}, "id = ?", id).Error; err != nil {
			return apperr.Internal("delete bid", err)
		}
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}
	s.Log.WithField("bid_id", id).Info("bid withdrawn")
	return nil
}

// loadEditable loads a bid the seller may still change: their own, with both
// the bid and its project PENDING. The project row is locked.
func loadEditable(tx *gorm.DB, seller *models.User, id uuid.UUID, b *models.Bid) error {
	if err := tx.First(b, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "bid")
	}
	if b.SellerID != seller.ID {
		return apperr.Forbidden("only the bid owner can change it")
	}

	var p models.Project
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", b.ProjectID).Error; err != nil {
		return notFoundOr(err, "project")
	}
	if b.Status != models.BidPending || p.Status != models.ProjectPending {
		return apperr.Precondition("only pending bids on pending projects can be changed")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Bid, error) {
	var b models.Bid
	if err := s.DB.WithContext(ctx).Preload("Project").First(&b, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "bid")
	}
	if b.SellerID != user.ID && (b.Project == nil || !b.Project.IsOwner(user.ID)) {
		return nil, apperr.Forbidden("you do not have access to this bid")
	}
	return &b, nil
}

// ProjectSummary is the trimmed project attached to a seller's bid listing.
type ProjectSummary struct {
	ID        uuid.UUID            `json:"id"`
	Title     string               `json:"title"`
	Status    models.ProjectStatus `json:"status"`
	Deadline  time.Time            `json:"deadline"`
	BudgetMin int64                `json:"budget_min"`
	BudgetMax int64                `json:"budget_max"`
	Buyer     *models.UserMini     `json:"buyer"`
}

type SellerBid struct {
	models.Bid
	Project *ProjectSummary `json:"project"`
}

func (s *Service) ListForSeller(ctx context.Context, seller *models.User) ([]SellerBid, error) {
	if !seller.IsSeller() {
		return nil, apperr.Forbidden("only sellers have bids")
	}

	var bids []models.Bid
	err := s.DB.WithContext(ctx).
		Preload("Project").
		Preload("Project.Buyer").
		Where("seller_id = ?", seller.ID).
		Order("created_at DESC").
		Find(&bids).Error
	if err != nil {
		return nil, apperr.Internal("list bids", err)
	}

	out := make([]SellerBid, 0, len(bids))
	for _, b := range bids {
		var summary *ProjectSummary
		if p := b.Project; p != nil {
			summary = &ProjectSummary{
				ID:        p.ID,
				Title:     p.Title,
				Status:    p.Status,
				Deadline:  p.Deadline,
				BudgetMin: p.BudgetMin,
				BudgetMax: p.BudgetMax,
				Buyer:     p.Buyer.Mini(false),
			}
		}
		b.Project = nil
		out = append(out, SellerBid{Bid: b, Project: summary})
	}
	return out, nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("load "+what, err)
}
