package billing

import (
	"context"
	"sync"

	"abo/pkg/models"
)

// Batch result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Progress reports the outcome of one contract in a batch run.
type Progress struct {
	Done        int // contracts finished so far, including this one
	Total       int
	Index       int // position of the contract in the input
	ContractRef string
	Result      *Result
	Err         error
	Status      string
}

// job is one contract handed to a worker.
type job struct {
	contract *models.Contract
	index    int
}

// InvoiceAll invoices contracts with a pool of workers. The returned
// channel yields one Progress per processed contract and is closed when all
// workers are done. Canceling ctx stops handing out further contracts;
// contracts never handed out produce no Progress.
func (s *Service) InvoiceAll(ctx context.Context, contracts []*models.Contract, req Request, workers int) <-chan Progress {
	if workers < 1 {
		workers = 1
	}
	total := len(contracts)
	progress := make(chan Progress, total)
	jobs := make(chan job)

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := range jobs {
				s.log.Debug().
					Int("worker", workerID).
					Str("ref_id", j.contract.RefID).
					Int("index", j.index+1).
					Msg("Worker invoicing contract")

				p := s.invoiceOne(ctx, j.contract, req)
				p.Index = j.index
				p.Total = total

				// progress has room for every contract, so sending under
				// the lock never blocks and keeps Done in channel order.
				mu.Lock()
				done++
				p.Done = done
				progress <- p
				mu.Unlock()
			}
		}(w)
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(progress)
		}()

		for i, c := range contracts {
			if ctx.Err() == nil {
				select {
				case jobs <- job{contract: c, index: i}:
					continue
				case <-ctx.Done():
				}
			}
			s.log.Warn().
				Int("submitted", i).
				Int("total", total).
				Msg("Batch canceled, remaining contracts not submitted")
			return
		}
	}()

	return progress
}

func (s *Service) invoiceOne(ctx context.Context, c *models.Contract, req Request) Progress {
	p := Progress{ContractRef: c.RefID}

	result, err := s.Invoice(ctx, c.ID, req)
	switch {
	case err != nil && IsNothingToBill(err):
		p.Status = StatusSkipped
		p.Err = err
	case err != nil:
		p.Status = StatusError
		p.Err = err
	case len(result.Warnings) > 0:
		p.Status = StatusWarning
		p.Result = result
	default:
		p.Status = StatusSuccess
		p.Result = result
	}
	return p
}

// Collect drains a progress channel and returns the outcomes in input
// order. Entries for contracts that were never processed stay zero.
func Collect(progress <-chan Progress, total int) []Progress {
	out := make([]Progress, total)
	for p := range progress {
		if p.Index >= 0 && p.Index < total {
			out[p.Index] = p
		}
	}
	return out
}
