// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/hackhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent,
and the partial unique indexes here are load-bearing: the one-pending-
proposal rules on team_invites and join_requests are enforced by the
database, not by application checks. Errors are aggregated so startup
can fail fast with everything that is wrong.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureInstitutes(ctx, db); err != nil {
		problems = append(problems, "institutes: "+err.Error())
	}
	if err := ensureTeams(ctx, db); err != nil {
		problems = append(problems, "teams: "+err.Error())
	}
	if err := ensurePendingRegistrations(ctx, db); err != nil {
		problems = append(problems, "pending_registrations: "+err.Error())
	}
	if err := ensureTeamInvites(ctx, db); err != nil {
		problems = append(problems, "team_invites: "+err.Error())
	}
	if err := ensureJoinRequests(ctx, db); err != nil {
		problems = append(problems, "join_requests: "+err.Error())
	}
	if err := ensureNotifications(ctx, db); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Mongo/DocDB returns IndexOptionsConflict when an index with the same
// keys exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, defs []mongo.IndexModel) error {
	var errs []string

	for _, m := range defs {
		name := ""
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}

		start := time.Now()
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) && name != "" {
				// Options changed since an earlier deploy: drop the old
				// definition and recreate with the current one.
				if _, dropErr := coll.Indexes().DropOne(ctx, name); dropErr != nil {
					errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, dropErr))
					continue
				}
				if _, err2 := coll.Indexes().CreateOne(ctx, m); err2 != nil {
					errs = append(errs, fmt.Sprintf("%s(%s): recreate failed: %v", coll.Name(), name, err2))
					continue
				}
				zap.L().Info("index dropped and recreated",
					zap.String("collection", coll.Name()),
					zap.String("name", name),
					zap.String("took", time.Since(start).String()))
				continue
			}
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email is the global login key.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Institute rosters: students/mentors/judges per institute,
		// sorted by name.
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "institute_code", Value: 1},
				{Key: "full_name", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_inst_name"),
		},
		// Free-agent screens filter on team_id presence.
		{
			Keys:    bson.D{{Key: "institute_code", Value: 1}, {Key: "team_id", Value: 1}},
			Options: options.Index().SetName("idx_users_inst_team"),
		},
	})
}

func ensureInstitutes(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("institutes")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_institutes_code"),
		},
	})
}

func ensureTeams(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("teams")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team names are globally unique, case-folded.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_teams_nameci"),
		},
		// Roster lookups: which team is this student on.
		{
			Keys:    bson.D{{Key: "members", Value: 1}},
			Options: options.Index().SetName("idx_teams_members"),
		},
		// Institute-scoped listings.
		{
			Keys:    bson.D{{Key: "institute_code", Value: 1}, {Key: "approved_at", Value: -1}},
			Options: options.Index().SetName("idx_teams_inst_approved"),
		},
	})
}

func ensurePendingRegistrations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("pending_registrations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Review queues list by status, newest first.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pending_status_created"),
		},
		// One pending application per team name (case-folded).
		{
			Keys: bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_pending_nameci").
				SetPartialFilterExpression(bson.M{"status": models.RegistrationPending}),
		},
		{
			Keys:    bson.D{{Key: "leader_email", Value: 1}},
			Options: options.Index().SetName("idx_pending_leader_email"),
		},
		{
			Keys:    bson.D{{Key: "pending_members.email", Value: 1}},
			Options: options.Index().SetName("idx_pending_member_email"),
		},
	})
}

func ensureTeamInvites(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("team_invites")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending invite per (student, team). Responded
		// invites fall out of the partial filter, so a team may invite
		// the same student again after a rejection.
		{
			Keys: bson.D{{Key: "to_user_id", Value: 1}, {Key: "team_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_invites_pending_user_team").
				SetPartialFilterExpression(bson.M{"status": models.ProposalPending}),
		},
		{
			Keys:    bson.D{{Key: "to_user_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_invites_user_status_created"),
		},
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_invites_team_status"),
		},
		{
			Keys:    bson.D{{Key: "institute_code", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_invites_inst_created"),
		},
	})
}

func ensureJoinRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("join_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending request per (student, team).
		{
			Keys: bson.D{{Key: "from_user_id", Value: 1}, {Key: "to_team_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_joinreqs_pending_user_team").
				SetPartialFilterExpression(bson.M{"status": models.ProposalPending}),
		},
		{
			Keys:    bson.D{{Key: "to_team_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_joinreqs_team_status_created"),
		},
		{
			Keys:    bson.D{{Key: "from_user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_joinreqs_user_created"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("notifications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipients", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_recipients_created"),
		},
		{
			Keys:    bson.D{{Key: "recipient_type", Value: 1}, {Key: "institute_code", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_type_inst_created"),
		},
	})
}
