package controllers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/utils"
)

type TaskController struct {
	db       *mongo.Client
	notifier *services.NotificationService
}

func NewTaskController(db *mongo.Client, notifier *services.NotificationService) *TaskController {
	return &TaskController{db: db, notifier: notifier}
}

// CreateTask creates a task. A direct assignment notifies the assignee; a
// task posted into a package notifies every subscriber of that package.
func (tc *TaskController) CreateTask(c echo.Context) error {
	if middleware.ExtractUserType(c) != models.UserTypeAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only admins can create tasks",
		})
	}

	creatorID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.TaskCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
		Status:      models.TaskStatusOpen,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid deadline, expected RFC3339 timestamp",
			})
		}
		if deadline.Before(now) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Deadline must be in the future",
			})
		}
		task.Deadline = &deadline
	}

	var pkg *models.TaskPackage
	if req.PackageID != "" {
		packageID, err := primitive.ObjectIDFromHex(req.PackageID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid package ID",
			})
		}
		var found models.TaskPackage
		err = config.GetCollection(tc.db, "packages").FindOne(ctx, bson.M{"_id": packageID}).Decode(&found)
		if err != nil {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Package not found",
			})
		}
		pkg = &found
		task.PackageID = &packageID
	}

	if req.AssignedTo != "" {
		assigneeID, err := primitive.ObjectIDFromHex(req.AssignedTo)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid assignee ID",
			})
		}
		count, err := config.GetCollection(tc.db, "users").CountDocuments(ctx, bson.M{"_id": assigneeID})
		if err != nil || count == 0 {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Assignee not found",
			})
		}
		task.AssignedTo = &assigneeID
		task.Status = models.TaskStatusClaimed
	}

	if _, err := config.GetCollection(tc.db, "tasks").InsertOne(ctx, task); err != nil {
		log.Printf("Error creating task: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create task",
		})
	}

	if task.AssignedTo != nil {
		err := tc.notifier.Notify(ctx, *task.AssignedTo,
			models.NotificationTypeTaskAssigned,
			"New task assigned",
			"You have been assigned: "+task.Title,
			map[string]interface{}{"taskId": task.ID.Hex()},
		)
		if err != nil {
			log.Printf("Error notifying assignee of task %s: %v", task.ID.Hex(), err)
		}
	} else if pkg != nil {
		tc.notifySubscribers(ctx, pkg, &task)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Task created successfully",
		Data:    task,
	})
}

// notifySubscribers fans a task_available notification out to every vendor
// subscribed to the task's package
func (tc *TaskController) notifySubscribers(ctx context.Context, pkg *models.TaskPackage, task *models.Task) {
	for _, subscriberID := range pkg.Subscribers {
		err := tc.notifier.Notify(ctx, subscriberID,
			models.NotificationTypeTaskAvailable,
			"New task available",
			fmt.Sprintf("%q was added to %s", task.Title, pkg.Name),
			map[string]interface{}{"taskId": task.ID.Hex(), "packageId": pkg.ID.Hex()},
		)
		if err != nil {
			log.Printf("Error notifying subscriber %s of task %s: %v", subscriberID.Hex(), task.ID.Hex(), err)
		}
	}
}

// GetTasks lists tasks, optionally filtered by status or package
func (tc *TaskController) GetTasks(c echo.Context) error {
	if _, err := authenticatedUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	filter := bson.M{}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}
	if packageHex := c.QueryParam("packageId"); packageHex != "" {
		packageID, err := primitive.ObjectIDFromHex(packageHex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid package ID",
			})
		}
		filter["packageId"] = packageID
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(100)
	cursor, err := config.GetCollection(tc.db, "tasks").Find(ctx, filter, opts)
	if err != nil {
		log.Printf("Error listing tasks: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve tasks",
		})
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		log.Printf("Error decoding tasks: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve tasks",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Tasks retrieved successfully",
		Data:    tasks,
	})
}

// GetTask returns a single task by ID
func (tc *TaskController) GetTask(c echo.Context) error {
	if _, err := authenticatedUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var task models.Task
	err = config.GetCollection(tc.db, "tasks").FindOne(ctx, bson.M{"_id": taskID}).Decode(&task)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Task not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task retrieved successfully",
		Data:    task,
	})
}

// ClaimTask assigns an open task to the calling vendor. The conditional
// update makes the claim first-wins under concurrent attempts.
func (tc *TaskController) ClaimTask(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tasksCollection := config.GetCollection(tc.db, "tasks")

	result := tasksCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": taskID, "status": models.TaskStatusOpen},
		bson.M{"$set": bson.M{
			"status":     models.TaskStatusClaimed,
			"assignedTo": userID,
			"updatedAt":  time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var task models.Task
	if err := result.Decode(&task); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Task is not open for claiming",
			})
		}
		log.Printf("Error claiming task %s: %v", taskID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to claim task",
		})
	}

	err = tc.notifier.Notify(ctx, userID,
		models.NotificationTypeTaskAssigned,
		"Task claimed",
		"You claimed: "+task.Title,
		map[string]interface{}{"taskId": task.ID.Hex()},
	)
	if err != nil {
		log.Printf("Error notifying claimer of task %s: %v", task.ID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task claimed successfully",
		Data:    task,
	})
}

// SubmitTask records the vendor's work on a claimed task. Accepts an
// optional multipart proof file; a thumbnail is generated out of band.
func (tc *TaskController) SubmitTask(c echo.Context) error {
	userID, err := authenticatedUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tasksCollection := config.GetCollection(tc.db, "tasks")

	var task models.Task
	err = tasksCollection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Task not found",
		})
	}
	if task.Status != models.TaskStatusClaimed || task.AssignedTo == nil || *task.AssignedTo != userID {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Task is not claimed by you",
		})
	}

	submission := models.Submission{
		VendorID:    userID,
		Note:        c.FormValue("note"),
		SubmittedAt: time.Now(),
	}

	if fileHeader, err := c.FormFile("proof"); err == nil {
		src, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Failed to read proof file",
			})
		}
		defer src.Close()

		fileData, err := io.ReadAll(src)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Failed to read proof file",
			})
		}

		proofName := fmt.Sprintf("%s_%s", taskID.Hex(), fileHeader.Filename)
		proofURL, err := utils.SaveProofFile(fileData, proofName)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: err.Error(),
			})
		}
		submission.ProofURL = proofURL

		go tc.attachThumbnail(taskID, proofURL)
	}

	_, err = tasksCollection.UpdateByID(ctx, taskID, bson.M{"$set": bson.M{
		"status":     models.TaskStatusSubmitted,
		"submission": submission,
		"updatedAt":  time.Now(),
	}})
	if err != nil {
		log.Printf("Error submitting task %s: %v", taskID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to submit task",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task submitted for review",
	})
}

// attachThumbnail generates the proof preview and stores its URL on the task.
// Runs detached; failure leaves the submission without a thumbnail.
func (tc *TaskController) attachThumbnail(taskID primitive.ObjectID, proofURL string) {
	thumbnailURL, err := utils.GenerateProofThumbnail(proofURL)
	if err != nil {
		log.Printf("Error generating thumbnail for task %s: %v", taskID.Hex(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = config.GetCollection(tc.db, "tasks").UpdateByID(ctx, taskID,
		bson.M{"$set": bson.M{"submission.thumbnailUrl": thumbnailURL}})
	if err != nil {
		log.Printf("Error saving thumbnail URL for task %s: %v", taskID.Hex(), err)
	}
}

// ApproveTask accepts a submission, credits the vendor's wallet with the
// reward, and notifies them
func (tc *TaskController) ApproveTask(c echo.Context) error {
	if middleware.ExtractUserType(c) != models.UserTypeAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only admins can review tasks",
		})
	}

	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tasksCollection := config.GetCollection(tc.db, "tasks")

	result := tasksCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": taskID, "status": models.TaskStatusSubmitted},
		bson.M{"$set": bson.M{
			"status":    models.TaskStatusApproved,
			"updatedAt": time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var task models.Task
	if err := result.Decode(&task); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Task is not awaiting review",
			})
		}
		log.Printf("Error approving task %s: %v", taskID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to approve task",
		})
	}

	if task.AssignedTo != nil {
		tc.creditReward(ctx, &task)

		err := tc.notifier.Notify(ctx, *task.AssignedTo,
			models.NotificationTypeTaskApproved,
			"Task approved",
			fmt.Sprintf("%q was approved, %.2f credited to your wallet", task.Title, task.Reward),
			map[string]interface{}{"taskId": task.ID.Hex(), "reward": task.Reward},
		)
		if err != nil {
			log.Printf("Error notifying vendor of approval for task %s: %v", task.ID.Hex(), err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task approved",
		Data:    task,
	})
}

func (tc *TaskController) creditReward(ctx context.Context, task *models.Task) {
	_, err := config.GetCollection(tc.db, "users").UpdateByID(ctx, *task.AssignedTo, bson.M{
		"$inc": bson.M{"balance": task.Reward},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		log.Printf("Error crediting reward for task %s: %v", task.ID.Hex(), err)
		return
	}

	transaction := models.WalletTransaction{
		ID:        primitive.NewObjectID(),
		UserID:    *task.AssignedTo,
		Amount:    task.Reward,
		Type:      models.TransactionTypeTaskReward,
		Reference: newTransactionReference(),
		Note:      "Reward for task " + task.ID.Hex(),
		CreatedAt: time.Now(),
	}
	if _, err := config.GetCollection(tc.db, "transactions").InsertOne(ctx, transaction); err != nil {
		log.Printf("Error recording reward transaction for task %s: %v", task.ID.Hex(), err)
	}
}

// RejectTask sends a submission back to the vendor with a reason. The task
// returns to claimed so the vendor can resubmit.
func (tc *TaskController) RejectTask(c echo.Context) error {
	if middleware.ExtractUserType(c) != models.UserTypeAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only admins can review tasks",
		})
	}

	taskID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task ID",
		})
	}

	var req models.TaskReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := config.GetCollection(tc.db, "tasks").FindOneAndUpdate(ctx,
		bson.M{"_id": taskID, "status": models.TaskStatusSubmitted},
		bson.M{"$set": bson.M{
			"status":    models.TaskStatusClaimed,
			"updatedAt": time.Now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var task models.Task
	if err := result.Decode(&task); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Task is not awaiting review",
			})
		}
		log.Printf("Error rejecting task %s: %v", taskID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to reject task",
		})
	}

	if task.AssignedTo != nil {
		message := fmt.Sprintf("%q was rejected", task.Title)
		if req.Reason != "" {
			message = fmt.Sprintf("%q was rejected: %s", task.Title, req.Reason)
		}
		err := tc.notifier.Notify(ctx, *task.AssignedTo,
			models.NotificationTypeTaskRejected,
			"Task rejected",
			message,
			map[string]interface{}{"taskId": task.ID.Hex(), "reason": req.Reason},
		)
		if err != nil {
			log.Printf("Error notifying vendor of rejection for task %s: %v", task.ID.Hex(), err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task rejected",
		Data:    task,
	})
}
