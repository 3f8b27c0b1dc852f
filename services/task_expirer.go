package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

const expirySweepInterval = time.Minute

// TaskExpirer sweeps for tasks whose deadline has passed and moves them to
// expired. Vendors holding an expired claim get a task_expired notification.
type TaskExpirer struct {
	db       *mongo.Client
	notifier *NotificationService
}

func NewTaskExpirer(db *mongo.Client, notifier *NotificationService) *TaskExpirer {
	return &TaskExpirer{db: db, notifier: notifier}
}

// Run blocks, sweeping once per interval until ctx is cancelled
func (te *TaskExpirer) Run(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			te.sweep()
		}
	}
}

func (te *TaskExpirer) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tasksCollection := config.GetCollection(te.db, "tasks")

	filter := bson.M{
		"status":   bson.M{"$in": []string{models.TaskStatusOpen, models.TaskStatusClaimed}},
		"deadline": bson.M{"$ne": nil, "$lt": time.Now()},
	}

	cursor, err := tasksCollection.Find(ctx, filter)
	if err != nil {
		log.Printf("Error finding expired tasks: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		log.Printf("Error decoding expired tasks: %v", err)
		return
	}

	for _, task := range tasks {
		// Conditional update so a submit racing the sweep wins
		result, err := tasksCollection.UpdateOne(ctx,
			bson.M{"_id": task.ID, "status": task.Status},
			bson.M{"$set": bson.M{
				"status":    models.TaskStatusExpired,
				"updatedAt": time.Now(),
			}},
		)
		if err != nil {
			log.Printf("Error expiring task %s: %v", task.ID.Hex(), err)
			continue
		}
		if result.ModifiedCount == 0 {
			continue
		}

		if task.AssignedTo != nil {
			err := te.notifier.Notify(ctx, *task.AssignedTo,
				models.NotificationTypeTaskExpired,
				"Task expired",
				"The deadline passed for: "+task.Title,
				map[string]interface{}{"taskId": task.ID.Hex()},
			)
			if err != nil {
				log.Printf("Error notifying vendor of expiry for task %s: %v", task.ID.Hex(), err)
			}
		}
	}
}
