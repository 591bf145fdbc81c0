package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusBacklog   = "backlog"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
)

// DefaultEstimatedHours is applied when a game is created without an estimate.
var DefaultEstimatedHours = decimal.NewFromInt(40)

type Game struct {
	BaseModel
	OwnerID           uuid.UUID       `gorm:"type:uuid;index;not null"        json:"ownerId"`
	Title             string          `gorm:"type:text;not null"              json:"title"`
	Platform          string          `gorm:"type:text;not null"              json:"platform"`
	Status            string          `gorm:"type:text;default:'backlog'"     json:"status"`
	CoverArtURL       *string         `gorm:"type:text"                       json:"coverArtUrl,omitempty"`
	HoursPlayed       decimal.Decimal `gorm:"type:numeric;default:0"          json:"hoursPlayed"`
	EstimatedHours    decimal.Decimal `gorm:"type:numeric;default:40"         json:"estimatedHours"`
	CompletionPercent int             `gorm:"type:int;default:0"              json:"completionPercent"`
	IsCurrent         bool            `gorm:"type:bool;default:false;index"   json:"isCurrent"`
	LastNowPlayingAt  *time.Time      `gorm:"type:timestamp;index"            json:"lastNowPlayingAt,omitempty"`
}

// CompletionPercent derives the clamped completion percentage from hours
// played against the estimate. Rounding is half away from zero, so 49.5%
// reports as 50. A non-positive estimate always yields 0.
func CompletionPercent(hoursPlayed, estimatedHours decimal.Decimal) int {
	if estimatedHours.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	pct := hoursPlayed.Div(estimatedHours).Mul(decimal.NewFromInt(100)).Round(0)

	hundred := decimal.NewFromInt(100)
	if pct.LessThan(decimal.Zero) {
		return 0
	}
	if pct.GreaterThan(hundred) {
		return 100
	}
	return int(pct.IntPart())
}

// RecalcCompletion refreshes the derived completion percentage. Runs after
// every mutation that can touch hours or the estimate.
func (g *Game) RecalcCompletion() {
	g.CompletionPercent = CompletionPercent(g.HoursPlayed, g.EstimatedHours)
}

// MarkNowPlaying flags the game as the owner's single current game.
func (g *Game) MarkNowPlaying(now time.Time) {
	g.IsCurrent = true
	g.Status = StatusPlaying
	g.LastNowPlayingAt = &now
	g.UpdatedAt = now
}
