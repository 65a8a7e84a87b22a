package transaction

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/raven-os/libnest/identifier"
	"github.com/raven-os/libnest/repository"
)

// DownloadQueue bounds a pool of independent downloader workers. Downloads
// are the one place parallelism is safe (each worker writes its own file)
// even though every other filesystem mutation in this repo is
// single-threaded and serialized by the lock file.
type DownloadQueue struct {
	sem     *semaphore.Weighted
	mirrors Repositories
	fetcher repository.Fetcher
}

// NewDownloadQueue returns a queue that runs at most concurrency downloads
// at once.
func NewDownloadQueue(concurrency int64, mirrors Repositories, fetcher repository.Fetcher) *DownloadQueue {
	return &DownloadQueue{
		sem:     semaphore.NewWeighted(concurrency),
		mirrors: mirrors,
		fetcher: fetcher,
	}
}

// Run downloads every id in ids concurrently, bounded by the queue's
// configured weight, calling store(id, body) for each successful fetch
// (each worker writes its own file). onWarning is called per
// mirror failure that wasn't an id's last attempt. Run blocks until every
// id has been attempted and returns the first error encountered, if any.
func (q *DownloadQueue) Run(ctx context.Context, ids []identifier.PackageID, store func(id identifier.PackageID, body io.Reader) error, onWarning func(*repository.Warning)) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, id := range ids {
		id := id
		if err := q.sem.Acquire(ctx, 1); err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer q.sem.Release(1)

			err := repository.Download(id, q.mirrors[id.Repository], q.fetcher, func(body io.Reader) error {
				return store(id, body)
			}, onWarning)

			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return firstErr
}
