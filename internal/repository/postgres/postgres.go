package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-queue-api/internal/repository"
)

type checkInRepository struct {
	db *sqlx.DB
}

type queueRepository struct {
	db *sqlx.DB
}

type queueEventRepository struct {
	db *sqlx.DB
}

type triageRepository struct {
	db *sqlx.DB
}

type identityRepository struct {
	db *sqlx.DB
}

func NewCheckInRepository(db *sqlx.DB) repository.CheckInRepository {
	return &checkInRepository{db: db}
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{db: db}
}

func NewQueueEventRepository(db *sqlx.DB) repository.QueueEventRepository {
	return &queueEventRepository{db: db}
}

func NewTriageRepository(db *sqlx.DB) repository.TriageRepository {
	return &triageRepository{db: db}
}

func NewIdentityRepository(db *sqlx.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}
