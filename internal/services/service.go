package services

import (
	"questlog/config"
	"questlog/internal/database"
)

type Service struct {
	Transaction *TransactionService
	Supabase    *SupabaseService
	Scheduler   *SchedulerService
}

func New(db database.DB, config config.Config) (Service, error) {
	supabase, err := NewSupabaseService(config)
	if err != nil {
		return Service{}, err
	}

	return Service{
		Transaction: NewTransactionService(db),
		Supabase:    supabase,
		Scheduler:   NewSchedulerService(),
	}, nil
}
