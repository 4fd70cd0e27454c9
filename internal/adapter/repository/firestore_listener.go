package repository

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"quillchat/internal/domain/repository"
)

// listen pumps the snapshots of q into onSnapshot from its own goroutine.
// The iterator is stopped by the goroutine itself once the listener context
// is cancelled, since Stop must not race with Next.
func listen(ctx context.Context, q firestore.Query, onSnapshot func(*firestore.QuerySnapshot), onError func(error)) repository.Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	it := q.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || err == iterator.Done || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			onSnapshot(snap)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}
