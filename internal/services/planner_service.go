package services

import (
	"context"
	"fmt"
	"strings"

	"dayplan/internal/amqp"
	"dayplan/internal/core"
	"dayplan/internal/format"
	applog "dayplan/internal/log"
	ports "dayplan/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// Store is the query layer the planner runs on.
type Store interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	CreateUser(ctx context.Context, username string) (core.User, error)
	DeleteUser(ctx context.Context, id int64) error
	DayTodos(ctx context.Context, date string, userID int64) ([]core.Todo, error)
	DayTransactions(ctx context.Context, date string, userID int64) ([]core.Transaction, error)
	CreateTodo(ctx context.Context, t core.NewTodo) (int64, error)
	ToggleTodo(ctx context.Context, id int64) error
	DeleteTodo(ctx context.Context, id int64) error
	CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error)
	DeleteTransaction(ctx context.Context, id int64) error
	YearTransactions(ctx context.Context, year int, userID int64) ([]core.Transaction, error)
	CategoryStats(ctx context.Context, year, month int, userID int64) ([]core.CategoryTotal, error)
	RangeTodos(ctx context.Context, start, end string, userID int64) ([]core.Todo, error)
	RangeTransactions(ctx context.Context, start, end string, userID int64) ([]core.Transaction, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher delivers change events, e.g. *amqp.Client.
type EventPublisher interface {
	Publish(ctx context.Context, ev amqp.ChangeEvent) error
	Close() error
}

// PlannerService orchestrates planner operations across the store, the
// optional event publisher and the optional sheet exporter.
type PlannerService struct {
	store     Store
	publisher EventPublisher
	exporter  ports.ExportWriter
}

type Option func(*PlannerService)

// WithPublisher enables change events.
func WithPublisher(p EventPublisher) Option {
	return func(s *PlannerService) { s.publisher = p }
}

// WithExporter enables the spreadsheet export.
func WithExporter(e ports.ExportWriter) Option {
	return func(s *PlannerService) { s.exporter = e }
}

func NewPlannerService(store Store, opts ...Option) *PlannerService {
	s := &PlannerService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PlannerService) Users(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *PlannerService) CreateUser(ctx context.Context, username string) (core.User, error) {
	u, err := s.store.CreateUser(ctx, username)
	if err != nil {
		return core.User{}, err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityUser, amqp.ActionCreated, u.ID, u.ID))
	return u, nil
}

func (s *PlannerService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityUser, amqp.ActionDeleted, id, id))
	return nil
}

// DayData loads the todos and transactions of one day concurrently.
func (s *PlannerService) DayData(ctx context.Context, date string, userID int64) (core.DayData, error) {
	if strings.TrimSpace(date) == "" {
		return core.DayData{}, core.MissingParameter("date")
	}
	userID = core.NormalizeUserID(userID)

	data := core.DayData{Date: date}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Todos, err = s.store.DayTodos(gctx, date, userID)
		return err
	})
	g.Go(func() error {
		var err error
		data.Transactions, err = s.store.DayTransactions(gctx, date, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.DayData{}, err
	}
	return data, nil
}

func (s *PlannerService) CreateTodo(ctx context.Context, t core.NewTodo) (int64, error) {
	t.UserID = core.NormalizeUserID(t.UserID)
	id, err := s.store.CreateTodo(ctx, t)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityTodo, amqp.ActionCreated, id, t.UserID))
	return id, nil
}

// ToggleTodo flips a todo regardless of which user owns it.
func (s *PlannerService) ToggleTodo(ctx context.Context, id int64) error {
	if err := s.store.ToggleTodo(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityTodo, amqp.ActionToggled, id, 0))
	return nil
}

func (s *PlannerService) DeleteTodo(ctx context.Context, id int64) error {
	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityTodo, amqp.ActionDeleted, id, 0))
	return nil
}

func (s *PlannerService) CreateTransaction(ctx context.Context, t core.NewTransaction) (int64, error) {
	t.UserID = core.NormalizeUserID(t.UserID)
	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityTransaction, amqp.ActionCreated, id, t.UserID))
	return id, nil
}

func (s *PlannerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewChangeEvent(amqp.EntityTransaction, amqp.ActionDeleted, id, 0))
	return nil
}

func (s *PlannerService) YearStats(ctx context.Context, year int, userID int64) ([]core.Transaction, error) {
	return s.store.YearTransactions(ctx, year, core.NormalizeUserID(userID))
}

// CategoryStats covers the whole year when month is 0.
func (s *PlannerService) CategoryStats(ctx context.Context, year, month int, userID int64) ([]core.CategoryTotal, error) {
	if month < 0 || month > 12 {
		return nil, core.InvalidParameter("month", fmt.Sprint(month))
	}
	return s.store.CategoryStats(ctx, year, month, core.NormalizeUserID(userID))
}

// Export loads an inclusive date range concurrently.
func (s *PlannerService) Export(ctx context.Context, start, end string, userID int64) (core.ExportData, error) {
	if strings.TrimSpace(start) == "" {
		return core.ExportData{}, core.MissingParameter("startDate")
	}
	if strings.TrimSpace(end) == "" {
		return core.ExportData{}, core.MissingParameter("endDate")
	}
	userID = core.NormalizeUserID(userID)

	data := core.ExportData{StartDate: start, EndDate: end}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.Todos, err = s.store.RangeTodos(gctx, start, end, userID)
		return err
	})
	g.Go(func() error {
		var err error
		data.Transactions, err = s.store.RangeTransactions(gctx, start, end, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ExportData{}, err
	}
	return data, nil
}

// ExportToSheet writes the export rows of a range to the configured sheet and
// returns the written range and the number of data rows.
func (s *PlannerService) ExportToSheet(ctx context.Context, start, end string, userID int64) (string, int, error) {
	if s.exporter == nil {
		return "", 0, core.ErrExportUnavailable
	}
	data, err := s.Export(ctx, start, end, userID)
	if err != nil {
		return "", 0, err
	}
	rows := format.ExportRows(data)
	rng, err := s.exporter.WriteExport(ctx, format.SheetValues(rows))
	if err != nil {
		return "", 0, fmt.Errorf("write sheet export: %w", err)
	}
	return rng, len(rows), nil
}

// Ready reports whether the store can serve requests.
func (s *PlannerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *PlannerService) publish(ctx context.Context, ev amqp.ChangeEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		fields := applog.NewFields().WithEntity(ev.Entity, ev.ID).WithError(err)
		applog.FromContext(ctx).WithComponent(applog.ComponentPlanner).
			ErrorContext(ctx, "Failed to publish change event", append(fields.ToSlice(), "action", ev.Action)...)
		// the write already succeeded
	}
}

// Close closes both the store and the publisher.
func (s *PlannerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close planner service: %v", errs)
	}

	return nil
}
