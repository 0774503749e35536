package notifier

import (
	"log/slog"

	"github.com/amishk599/jobsweep/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line per listing. It never fails.
func (n *LogNotifier) Notify(listings []model.Listing) error {
	for _, l := range listings {
		n.logger.Info("new listing",
			"title", l.Title,
			"company", l.Company,
			"location", l.Location,
			"country", l.Country,
			"url", l.URL,
			"date_posted", l.DatePosted,
			"source", l.Source,
			"search_term", l.SearchTerm,
		)
	}
	if len(listings) > 0 {
		n.logger.Info("digest logged", "listings", len(listings))
	}
	return nil
}
