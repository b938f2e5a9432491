package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-user-cache/pkg/countcache"
	"github.com/goliatone/go-user-cache/usercache"
	"github.com/goliatone/go-user-cache/users"
	"github.com/sirupsen/logrus"
)

type demo struct {
	svc    *usercache.CachedService
	counts *countcache.Cache
	logger logrus.FieldLogger
}

// seed inserts records when the store is empty.
func (d *demo) seed(ctx context.Context, records []*users.User) error {
	total, err := d.svc.SelectUsersCount(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		d.logger.WithField("users", total).Info("store already populated, skipping seed")
		return nil
	}

	for _, u := range records {
		if _, err := d.svc.InsertUser(ctx, u); err != nil {
			return fmt.Errorf("insert %s: %w", u.Username, err)
		}
	}
	d.logger.WithField("users", len(records)).Info("seeded users")
	return nil
}

// run exercises every read and write path twice where caching matters, so the
// logs show a miss followed by a hit and the effect of each invalidation.
func (d *demo) run(ctx context.Context) error {
	for i := 0; i < 2; i++ {
		all, err := d.svc.GetAllUsers(ctx)
		if err != nil {
			return err
		}
		d.step("GetAllUsers", logrus.Fields{"users": len(all)})
	}

	ids, err := d.svc.SelectNowIDs(ctx)
	if err != nil {
		return err
	}
	d.step("SelectNowIDs", logrus.Fields{"ids": ids})
	if len(ids) == 0 {
		return nil
	}
	first := ids[0]

	for i := 0; i < 2; i++ {
		user, err := d.svc.GetUserByID(ctx, first)
		if err != nil {
			return err
		}
		d.step("GetUserByID", logrus.Fields{"id": first, "user": describe(user)})
	}

	found, err := d.svc.FindUsers(ctx, "example")
	if err != nil {
		return err
	}
	d.step("FindUsers", logrus.Fields{"keyword": "example", "matches": len(found)})

	total, err := d.counts.Count(ctx)
	if err != nil {
		return err
	}
	d.step("SelectUsersCount", logrus.Fields{"total": total, "ttl": d.counts.TTL().String()})

	user, err := d.svc.GetUserByID(ctx, first)
	if err != nil {
		return err
	}
	if user != nil {
		edited := *user
		edited.Phone = "555-0199"
		affected, err := d.svc.EditUser(ctx, &edited)
		if err != nil {
			return err
		}
		d.step("EditUser", logrus.Fields{"id": first, "affected": affected})

		user, err = d.svc.GetUserByID(ctx, first)
		if err != nil {
			return err
		}
		d.step("GetUserByID", logrus.Fields{"id": first, "user": describe(user)})
	}

	inserted, err := d.svc.InsertUser(ctx, &users.User{Username: "katherine", Email: "katherine@nasa.example"})
	if err != nil {
		return err
	}
	d.step("InsertUser", logrus.Fields{"id": inserted.ID})

	deleted, err := d.svc.DeleteUser(ctx, inserted.ID)
	if err != nil {
		return err
	}
	d.step("DeleteUser", logrus.Fields{"id": inserted.ID, "affected": deleted})

	gone, err := d.svc.GetUserByID(ctx, inserted.ID)
	if err != nil {
		return err
	}
	d.step("GetUserByID", logrus.Fields{"id": inserted.ID, "user": describe(gone)})
	return nil
}

func (d *demo) step(operation string, fields logrus.Fields) {
	stats := d.svc.Stats()
	fields["operation"] = operation
	fields["hits"] = stats.Hits
	fields["misses"] = stats.Misses
	d.logger.WithFields(fields).Info("demo step")
}

func describe(user *users.User) string {
	if user == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%d:%s <%s> %s", user.ID, user.Username, user.Email, user.Phone)
}
