// Package txn runs a function inside a MongoDB multi-document transaction.
//
// The session context handed to the function is the transaction handle:
// every store call that must be part of the transaction receives it as its
// context. Transactions are committed when the function returns nil and
// aborted on any error. Nothing is retried.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Runner starts transactions on one client.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger
}

// New returns a Runner for client.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	return &Runner{client: client, log: logger}
}

// Run executes fn inside a transaction. The original error from fn (or from
// commit) is returned unchanged so callers can classify it; an abort failure
// is logged, not returned.
func (r *Runner) Run(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(opts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}

		if err := fn(sc); err != nil {
			if abortErr := sess.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				r.log.Warn("transaction abort failed", zap.Error(abortErr))
			}
			if IsNotSupported(err) {
				r.log.Error("transactions are not supported by this MongoDB deployment; a replica set is required",
					zap.Error(err))
			}
			return err
		}

		if err := sess.CommitTransaction(sc); err != nil {
			if abortErr := sess.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				r.log.Debug("abort after failed commit", zap.Error(abortErr))
			}
			return err
		}
		return nil
	})
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions (standalone mongod, or an operation illegal in a
// transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // NotAReplicaSet variants on older servers
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	keywords := []string{"transaction", "replica set", "session", "not supported", "illegal operation"}
	hits := 0
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			hits++
		}
	}
	return hits >= 2
}
