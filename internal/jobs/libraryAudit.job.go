package jobs

import (
	"context"

	"questlog/internal/repositories"
	"questlog/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"gorm.io/gorm"
)

// LibraryAuditJob scans for owners whose library holds more than one
// now-playing game and repairs them. The promotion path keeps the flag
// unique on its own; the audit exists to catch rows damaged outside the
// service, such as manual database edits.
type LibraryAuditJob struct {
	gameRepo           repositories.GameRepository
	transactionService *services.TransactionService
	log                logger.Logger
	schedule           services.Schedule
}

func NewLibraryAuditJob(
	gameRepo repositories.GameRepository,
	transactionService *services.TransactionService,
	schedule services.Schedule,
) *LibraryAuditJob {
	log := logger.New("libraryAuditJob")
	log.Info("Creating new library audit job", "schedule", schedule)

	return &LibraryAuditJob{
		gameRepo:           gameRepo,
		transactionService: transactionService,
		log:                log,
		schedule:           schedule,
	}
}

func (j *LibraryAuditJob) Name() string {
	return "NightlyLibraryAudit"
}

func (j *LibraryAuditJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	log.Info("Starting library audit")

	repaired := 0
	err := j.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		owners, err := j.gameRepo.FindOwnersWithMultipleCurrent(ctx, tx)
		if err != nil {
			return err
		}

		for _, ownerID := range owners {
			// The most recently played game keeps the flag; everything else
			// is unset, then the keeper is re-marked.
			keeper, err := j.gameRepo.GetMostRecent(ctx, tx, ownerID)
			if err != nil {
				return err
			}
			if keeper == nil {
				continue
			}

			if err := j.gameRepo.UnsetAllCurrent(ctx, tx, ownerID); err != nil {
				return err
			}

			keeper.IsCurrent = true
			if err := j.gameRepo.Save(ctx, tx, keeper); err != nil {
				return err
			}

			log.Warn(
				"repaired owner with multiple current games",
				"ownerID", ownerID,
				"keptGameID", keeper.ID,
			)
			repaired++
		}

		return nil
	})
	if err != nil {
		return log.Err("library audit failed", err)
	}

	log.Info("Library audit completed", "repairedOwners", repaired)
	return nil
}

func (j *LibraryAuditJob) Schedule() services.Schedule {
	return j.schedule
}
