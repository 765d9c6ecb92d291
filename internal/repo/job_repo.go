package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/dailyjobs/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func (s *Store) EnsureJobIndexes(ctx context.Context) error {
	_, err := s.colJobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_job_id"),
		},
		{
			Keys:    bson.D{{Key: "company", Value: 1}, {Key: "added_to_db", Value: -1}},
			Options: options.Index().SetName("company_added"),
		},
	})
	return err
}

// InsertJob stores j unless a job with the same JobID exists. It reports whether j is new.
func (s *Store) InsertJob(ctx context.Context, j *domain.Job) (_ bool, err error) {
	sp, ctx := startSpan(ctx, "mongo.job.insert", tracer.Tag("company", j.Company))
	defer func() { finish(sp, err) }()

	if j.AddedToDB.IsZero() {
		j.AddedToDB = time.Now().UTC()
	}
	res, err := s.colJobs.UpdateOne(ctx,
		bson.M{"job_id": j.JobID},
		bson.M{"$setOnInsert": j},
		options.Update().SetUpsert(true),
	)
	if IsDup(err) {
		// lost a race with a concurrent insert of the same posting
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// FindJob returns nil, nil when no job has that id.
func (s *Store) FindJob(ctx context.Context, jobID string) (_ *domain.Job, err error) {
	sp, ctx := startSpan(ctx, "mongo.job.get")
	defer func() { finish(sp, err) }()

	var j domain.Job
	err = s.colJobs.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
