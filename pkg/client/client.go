package client

import (
	"context"
	"oims/pkg/logger"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client aggregates every backend the gateway talks to: the OIMS REST API
// (through typed sub-clients sharing one TokenProvider) and the MongoDB
// session store.
type Client struct {
	Mongo *mongo.Client

	Auth      *AuthClient
	Tokens    *TokenProvider
	Inventory *InventoryClient
	Booking   *BookingClient
	Project   *ProjectClient
	User      *UserClient
}

func NewClient() *Client {
	return &Client{}
}

// SetAPIClients wires the typed OIMS clients against one base URL. With
// empty credentials the clients run unauthenticated, which the test doubles
// rely on.
func (c *Client) SetAPIClients(baseURL, username, password string) {
	c.Auth = NewAuthClient(baseURL)

	var tokens TokenSource
	if username != "" {
		c.Tokens = NewTokenProvider(c.Auth, username, password)
		tokens = c.Tokens
	}

	c.Inventory = NewInventoryClient(baseURL, tokens)
	c.Booking = NewBookingClient(baseURL, tokens)
	c.Project = NewProjectClient(baseURL, tokens)
	c.User = NewUserClient(baseURL, tokens)
}

func (c *Client) SetMongo(log *logger.Logger, mongoURI string, mongoConnTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB",
			"error", err,
			"uri", mongoURI,
		)
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", "error", err)
	}

	log.Info("Successfully connected to MongoDB")
	c.Mongo = client
}

func (c *Client) GracefulShutdown() {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = c.Mongo.Disconnect(ctx)
	}
}
