package project

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

// Observer receives status transitions; *metrics.Metrics satisfies it.
type Observer interface {
	ProjectTransition(to string)
}

// BlobRemover deletes stored attachment blobs.
type BlobRemover interface {
	Remove(storedName string) error
}

type nopObserver struct{}

func (nopObserver) ProjectTransition(string) {}

type Service struct {
	DB       *gorm.DB
	Notifier notify.Emitter
	Observer Observer
	Blobs    BlobRemover
	BaseURL  string
	Log      *logrus.Entry
}

func NewService(db *gorm.DB, notifier notify.Emitter, log *logrus.Entry) *Service {
	return &Service{DB: db, Notifier: notifier, Observer: nopObserver{}, Log: log}
}

// Summary is a project as it appears in listings.
type Summary struct {
	models.Project
	BidCount int64 `json:"bid_count"`
}

type CreateInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required"`
	BudgetMin   *int64     `json:"budget_min" validate:"required,gte=0"`
	BudgetMax   *int64     `json:"budget_max" validate:"required,gte=0"`
	Deadline    *time.Time `json:"deadline" validate:"required"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description"`
	BudgetMin   *int64     `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax   *int64     `json:"budget_max" validate:"omitempty,gte=0"`
	Deadline    *time.Time `json:"deadline"`
}

func (s *Service) List(ctx context.Context, user *models.User) ([]Summary, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	switch {
	case user.IsBuyer():
		q = q.Where("buyer_id = ?", user.ID)
	case user.IsSeller():
		// one query, so a project both PENDING and assigned is listed once
		q = q.Where("status = ? OR seller_id = ?", models.ProjectPending, user.ID)
	default:
		return nil, apperr.Forbidden("unknown role")
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, apperr.Internal("list projects", err)
	}

	counts, err := s.bidCounts(ctx, projects)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(projects))
	for _, p := range projects {
		out = append(out, Summary{Project: p, BidCount: counts[p.ID]})
	}
	return out, nil
}

func (s *Service) bidCounts(ctx context.Context, projects []models.Project) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(projects))
	if len(projects) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	var rows []struct {
		ProjectID uuid.UUID
		Count     int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Bid{}).
		Select("project_id, count(*) as count").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Internal("count bids", err)
	}
	for _, r := range rows {
		counts[r.ProjectID] = r.Count
	}
	return counts, nil
}

func (s *Service) Get(ctx context.Context, user *models.User, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.DB.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "project")
	}

	if !canView(&p, user) {
		return nil, apperr.Forbidden("you do not have access to this project")
	}
	p.ResolveFileURLs(s.BaseURL)
	return &p, nil
}

func canView(p *models.Project, user *models.User) bool {
	switch {
	case p.IsOwner(user.ID), p.IsAssignedSeller(user.ID):
		return true
	case user.IsSeller() && p.Status == models.ProjectPending:
		return true
	}
	return false
}

func (s *Service) Create(ctx context.Context, buyer *models.User, in CreateInput) (*models.Project, error) {
	if !buyer.IsBuyer() {
		return nil, apperr.Forbidden("only buyers can create projects")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkBudget(*in.BudgetMin, *in.BudgetMax); err != nil {
		return nil, err
	}

	p := models.Project{
		Title:       in.Title,
		Description: in.Description,
		BudgetMin:   *in.BudgetMin,
		BudgetMax:   *in.BudgetMax,
		Deadline:    in.Deadline.UTC(),
		Status:      models.ProjectPending,
		BuyerID:     buyer.ID,
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperr.Internal("create project", err)
	}

	s.Log.WithFields(logrus.Fields{"project_id": p.ID, "buyer_id": buyer.ID}).Info("project created")
	return &p, nil
}

func (s *Service) Update(ctx context.Context, user *models.User, id uuid.UUID, in UpdateInput) (*models.Project, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	fields := apperr.FieldErrors{}
	changes := map[string]any{}
	if in.Title != nil {
		if t := strings.TrimSpace(*in.Title); t == "" {
			fields.Add("title", "must not be empty")
		} else {
			changes["title"] = t
		}
	}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d == "" {
			fields.Add("description", "must not be empty")
		} else {
			changes["description"] = d
		}
	}
	if in.BudgetMin != nil {
		changes["budget_min"] = *in.BudgetMin
	}
	if in.BudgetMax != nil {
		changes["budget_max"] = *in.BudgetMax
	}
	if in.Deadline != nil {
		changes["deadline"] = in.Deadline.UTC()
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Validation error", fields)
	}

	var p models.Project
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		if !p.IsOwner(user.ID) {
			return apperr.Forbidden("only the project owner can update it")
		}
		if p.Status != models.ProjectPending {
			return apperr.Precondition("only pending projects can be updated")
		}

		lo, hi := p.BudgetMin, p.BudgetMax
		if in.BudgetMin != nil {
			lo = *in.BudgetMin
		}
		if in.BudgetMax != nil {
			hi = *in.BudgetMax
		}
		if err := checkBudget(lo, hi); err != nil {
			return err
		}

		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&p).Updates(changes).Error; err != nil {
			return apperr.Internal("update project", err)
		}
		return tx.First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &p, nil
}

// Delete removes a pending project with its bids and file records. Stored
// blobs are removed after commit; failures there are only logged.
func (s *Service) Delete(ctx context.Context, user *models.User, id uuid.UUID) error {
	var files []models.File
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := lockProject(tx, id, &p); err != nil {
			return err
		}
		if !p.IsOwner(user.ID) {
			return apperr.Forbidden("only the project owner can delete it")
		}
		if p.Status != models.ProjectPending {
			return apperr.Precondition("only pending projects can be deleted")
		}

		if err := tx.Where("project_id = ?", id).Find(&files).Error; err != nil {
			return apperr.Internal("load files", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Bid{}).Error; err != nil {
			return apperr.Internal("delete bids", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return apperr.Internal("delete files", err)
		}
		if err := tx.Delete(&p).Error; err != nil {
			return apperr.Internal("delete project", err)
		}
		return nil
	})
	if err != nil {
		return apperr.From(err)
	}

	if s.Blobs != nil {
		for _, f := range files {
			if err := s.Blobs.Remove(f.StoredName); err != nil {
				s.Log.WithError(err).WithField("stored_name", f.StoredName).Warn("remove attachment blob")
			}
		}
	}
	s.Log.WithField("project_id", id).Info("project deleted")
	return nil
}

type SelectBidInput struct {
	BidID    uuid.UUID `json:"bid_id" validate:"required"`
	SellerID uuid.UUID `json:"seller_id" validate:"required"`
}

// SelectBid accepts one bid and rejects the rest. The project row is locked
// for the whole transaction so two concurrent selections cannot both win.
func (s *Service) SelectBid(ctx context.Context, buyer *models.User, projectID uuid.UUID, in SelectBidInput) (*models.Project, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		p        models.Project
		chosen   models.Bid
		rejected []models.Bid
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &p); err != nil {
			return err
		}
		if !p.IsOwner(buyer.ID) {
			return apperr.Forbidden("only the project owner can select a bid")
		}
		if p.Status != models.ProjectPending {
			return apperr.Precondition("project is no longer accepting bids")
		}

		err := tx.Preload("Seller").
			Where("id = ? AND project_id = ? AND seller_id = ?", in.BidID, projectID, in.SellerID).
			First(&chosen).Error
		if err != nil {
			return notFoundOr(err, "bid")
		}

		if err := tx.Preload("Seller").
			Where("project_id = ? AND id <> ?", projectID, chosen.ID).
			Find(&rejected).Error; err != nil {
			return apperr.Internal("load bids", err)
		}

		if err := tx.Model(&p).Updates(map[string]any{
			"status":    models.ProjectInProgress,
			"seller_id": in.SellerID,
		}).Error; err != nil {
			return apperr.Internal("update project", err)
		}
		if err := tx.Model(&models.Bid{}).Where("id = ?", chosen.ID).
			Update("status", models.BidAccepted).Error; err != nil {
			return apperr.Internal("accept bid", err)
		}
		if err := tx.Model(&models.Bid{}).Where("project_id = ? AND id <> ?", projectID, chosen.ID).
			Update("status", models.BidRejected).Error; err != nil {
			return apperr.Internal("reject bids", err)
		}
		return tx.First(&p, "id = ?", projectID).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.Observer.ProjectTransition(string(models.ProjectInProgress))
	s.Log.WithFields(logrus.Fields{
		"project_id": p.ID,
		"bid_id":     chosen.ID,
		"seller_id":  in.SellerID,
		"rejected":   len(rejected),
	}).Info("bid selected")

	bidID := chosen.ID
	s.emit(notify.BidAccepted, &p, chosen.Seller, buyer, &bidID, chosen.Amount)
	for i := range rejected {
		id := rejected[i].ID
		s.emit(notify.BidRejected, &p, rejected[i].Seller, buyer, &id, rejected[i].Amount)
	}
	return &p, nil
}

func (s *Service) Complete(ctx context.Context, buyer *models.User, projectID uuid.UUID) (*models.Project, error) {
	var (
		p      models.Project
		seller models.User
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, projectID, &p); err != nil {
			return err
		}
		if !p.IsOwner(buyer.ID) {
			return apperr.Forbidden("only the project owner can complete it")
		}
		if p.Status != models.ProjectInProgress {
			return apperr.Precondition("only in-progress projects can be completed")
		}
		if err := tx.Model(&p).Update("status", models.ProjectCompleted).Error; err != nil {
			return apperr.Internal("complete project", err)
		}
		if err := tx.First(&seller, "id = ?", *p.SellerID).Error; err != nil {
			return apperr.Internal("load seller", err)
		}
		return tx.First(&p, "id = ?", projectID).Error
	})
	if err != nil {
		return nil, apperr.From(err)
	}

	s.Observer.ProjectTransition(string(models.ProjectCompleted))
	s.Log.WithField("project_id", p.ID).Info("project completed")
	s.emit(notify.ProjectCompleted, &p, &seller, buyer, nil, 0)
	return &p, nil
}

// BidView is a bid with a trimmed seller; the email is only present for the
// project's buyer.
type BidView struct {
	models.Bid
	Seller *models.UserMini `json:"seller"`
}

func (s *Service) BidsFor(ctx context.Context, user *models.User, projectID uuid.UUID) ([]BidView, error) {
	db := s.DB.WithContext(ctx)

	var p models.Project
	if err := db.First(&p, "id = ?", projectID).Error; err != nil {
		return nil, notFoundOr(err, "project")
	}

	withEmail := p.IsOwner(user.ID)
	if !withEmail {
		if !user.IsSeller() {
			return nil, apperr.Forbidden("you do not have access to these bids")
		}
		var own int64
		if err := db.Model(&models.Bid{}).
			Where("project_id = ? AND seller_id = ?", projectID, user.ID).
			Count(&own).Error; err != nil {
			return nil, apperr.Internal("check bid", err)
		}
		if own == 0 {
			return nil, apperr.Forbidden("you do not have access to these bids")
		}
	}

	var bids []models.Bid
	if err := db.Preload("Seller").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&bids).Error; err != nil {
		return nil, apperr.Internal("list bids", err)
	}

	out := make([]BidView, 0, len(bids))
	for _, b := range bids {
		seller := b.Seller.Mini(withEmail)
		b.Seller = nil
		out = append(out, BidView{Bid: b, Seller: seller})
	}
	return out, nil
}

func (s *Service) emit(kind notify.Kind, p *models.Project, to, actor *models.User, bidID *uuid.UUID, amount int64) {
	if to == nil {
		return
	}
	s.Notifier.Emit(notify.Event{
		Kind:         kind,
		UserID:       to.ID,
		Email:        to.Email,
		Name:         to.Name,
		ProjectID:    p.ID,
		ProjectTitle: p.Title,
		BidID:        bidID,
		Amount:       amount,
		ActorName:    actor.Name,
	})
}

func lockProject(tx *gorm.DB, id uuid.UUID, p *models.Project) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(p, "id = ?", id).Error
	return notFoundOr(err, "project")
}

func checkBudget(lo, hi int64) error {
	if lo <= hi {
		return nil
	}
	fields := apperr.FieldErrors{}
	fields.Add("budget_max", "must be greater than or equal to budget_min")
	return apperr.Validation("Validation error", fields)
}

func notFoundOr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("load "+what, err)
}
