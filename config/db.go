// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://localhost:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "taskhive"
	}
	return client.Database(dbName).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "taskhive"
	}

	db := client.Database(dbName)

	collections := []string{"users", "tasks", "packages", "notifications", "transactions", "withdrawals"}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	// Unique email per account
	userColl := db.Collection("users")
	emailIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := userColl.Indexes().CreateOne(ctx, emailIndexModel); err != nil {
		log.Printf("Error creating email index: %v", err)
	}

	// Referral codes are looked up at signup
	referralIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "referralCode", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}
	if _, err := userColl.Indexes().CreateOne(ctx, referralIndexModel); err != nil {
		log.Printf("Error creating referralCode index: %v", err)
	}

	// Notification list is always read newest-first per recipient
	notifColl := db.Collection("notifications")
	notifIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	if _, err := notifColl.Indexes().CreateOne(ctx, notifIndexModel); err != nil {
		log.Printf("Error creating notifications index: %v", err)
	}

	// Open-task browsing and the expirer both filter on status
	taskColl := db.Collection("tasks")
	taskIndexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}},
	}
	if _, err := taskColl.Indexes().CreateOne(ctx, taskIndexModel); err != nil {
		log.Printf("Error creating tasks index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
