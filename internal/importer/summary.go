package importer

import "catalog-import-service/internal/models"

var reportedActions = []models.ImportAction{
	models.ActionCreated,
	models.ActionUpdated,
	models.ActionSkipped,
	models.ActionReplaced,
	models.ActionError,
}

func emptyCounts() map[models.ImportAction]int {
	counts := make(map[models.ImportAction]int, len(reportedActions))
	for _, action := range reportedActions {
		counts[action] = 0
	}
	return counts
}

// Summarize folds per-record results into the batch summary
func Summarize(results []models.ImportResult) models.BatchSummary {
	summary := models.BatchSummary{
		Total:  len(results),
		Counts: emptyCounts(),
		Status: models.BatchCompleted,
	}
	for _, r := range results {
		summary.Counts[r.Action]++
		summary.ProductsImported += r.ProductsImported
		summary.ProductsErrors += r.ProductsErrors
		if !r.Success {
			summary.Status = models.BatchCompletedWithErrors
		}
	}
	return summary
}

// AbortedSummary is the summary of a batch that was stopped before any write
func AbortedSummary(total int) models.BatchSummary {
	return models.BatchSummary{
		Total:  total,
		Counts: emptyCounts(),
		Status: models.BatchAborted,
	}
}

// RejectedSummary is the summary of a batch turned away by validation. No
// record was attempted, so every count is zero.
func RejectedSummary() models.BatchSummary {
	return models.BatchSummary{
		Counts: emptyCounts(),
		Status: models.BatchRejected,
	}
}
