package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg" // For encoding JPEG
	"log"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/queue"
	"github.com/Idosegev23/homeruncms-sub000/internal/services"
	"github.com/Idosegev23/homeruncms-sub000/internal/storage"
	"github.com/Idosegev23/homeruncms-sub000/internal/whatsapp"
)

// TaskType defines the type of a background task.
const (
	TypeNotificationPoll = "whatsapp:notifications:poll"
	TypeQueueDrain       = "queue:drain"
	TypeImageProcess     = "image:process"
)

// IAsynqClient is the subset of asynq.Client the processor needs, extracted
// for mocking in tests.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg             *config.Config
	source          whatsapp.Source
	inboxService    services.IInboxService
	propertyService services.IPropertyService
	storageService  storage.IS3Storage
	messageQueue    *queue.Queue
	taskClient      IAsynqClient
}

func NewTaskProcessor(
	cfg *config.Config,
	source whatsapp.Source,
	inboxService services.IInboxService,
	propertyService services.IPropertyService,
	storageService storage.IS3Storage,
	messageQueue *queue.Queue,
	taskClient IAsynqClient,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:             cfg,
		source:          source,
		inboxService:    inboxService,
		propertyService: propertyService,
		storageService:  storageService,
		messageQueue:    messageQueue,
		taskClient:      taskClient,
	}
}

// SetupServer configures an Asynq server instance for the background worker
// and returns it with its handler mux. The caller runs it. Returns nil in
// API-only mode.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker {
		log.Println("Running in API mode, no task server started.")
		return nil, nil
	}

	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotificationPoll, processor.HandleNotificationPollTask)
	mux.HandleFunc(TypeQueueDrain, processor.HandleQueueDrainTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// HandleNotificationPollTask drains the gateway notification queue into the
// inbox, then re-enqueues itself so polling runs continuously.
func (p *TaskProcessor) HandleNotificationPollTask(ctx context.Context, t *asynq.Task) error {
	saved := 0
	for {
		msg, err := p.source.Next(ctx)
		if err != nil {
			log.Printf("Notification poll error: %v", err)
			break // next cycle picks the queue up again
		}
		if msg == nil {
			break
		}
		if _, err := p.inboxService.SaveInbound(ctx, msg); err != nil {
			log.Printf("Failed to save inbound message from %s: %v", msg.ChatID, err)
			return err
		}
		saved++
	}
	if saved > 0 {
		log.Printf("Notification poll saved %d inbound messages", saved)
	}

	taskInfo, err := p.taskClient.EnqueueContext(ctx, t, asynq.ProcessIn(p.cfg.NotificationPollInterval))
	if err != nil {
		log.Printf("ERROR failed to re-enqueue notification poll task: %v", err)
		return err
	}
	log.Printf("Re-enqueued notification poll task %s to run in %v", taskInfo.ID, p.cfg.NotificationPollInterval)
	return nil
}

// HandleQueueDrainTask drains the outbound message queue, then re-enqueues
// itself. A failed head is left for the next cycle; its backoff stamp keeps it
// from being hammered.
func (p *TaskProcessor) HandleQueueDrainTask(ctx context.Context, t *asynq.Task) error {
	if err := p.messageQueue.Drain(ctx); err != nil {
		log.Printf("Queue drain task: drain stopped: %v", err)
	}

	taskInfo, err := p.taskClient.EnqueueContext(ctx, t, asynq.ProcessIn(p.cfg.QueueRetryBackoff))
	if err != nil {
		log.Printf("ERROR failed to re-enqueue queue drain task: %v", err)
		return err
	}
	log.Printf("Re-enqueued queue drain task %s to run in %v", taskInfo.ID, p.cfg.QueueRetryBackoff)
	return nil
}

// HandleImageProcessTask processes property photo normalization tasks.
type ImageTaskPayload struct {
	S3Key      string `json:"s3_key"`
	PropertyID string `json:"property_id"`
}

func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PropertyID == "" || payload.S3Key == "" {
		return fmt.Errorf("image task payload missing s3_key or property_id: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, PropertyID=%s", payload.S3Key, payload.PropertyID)

	// 1. Download image from S3
	imgData, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		log.Printf("Error getting object %s from S3: %v", payload.S3Key, err)
		return fmt.Errorf("failed to download image from S3: %w", err)
	}

	// Check initial size before decoding (more efficient)
	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	// 2. Check dimensions
	maxWidth := uint(p.cfg.ImageMaxDimension)
	maxHeight := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxWidth || uint(img.Bounds().Dy()) > maxHeight

	processedImageData := imgData
	contentType := "image/" + format

	// 3. Resize if needed
	if needsResize {
		log.Printf("Resizing image %s (original: %dx%d, max: %dx%d)", payload.S3Key, img.Bounds().Dx(), img.Bounds().Dy(), maxWidth, maxHeight)
		resizedImg := resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			log.Printf("Error encoding resized image %s: %v", payload.S3Key, err)
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		processedImageData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		if int64(len(processedImageData)) > maxSizeBytes {
			log.Printf("Resized image %s still exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(processedImageData), maxSizeBytes)
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
	}

	// 4. Upload processed image (overwrite original)
	if err := p.storageService.PutObject(ctx, payload.S3Key, processedImageData, contentType); err != nil {
		log.Printf("Error uploading processed image %s to S3: %v", payload.S3Key, err)
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	// 5. Update Property document
	if err := p.propertyService.AddImageToProperty(ctx, payload.PropertyID, payload.S3Key); err != nil {
		log.Printf("Error adding image key %s to property %s: %v", payload.S3Key, payload.PropertyID, err)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("property not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to update property with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, PropertyID=%s", payload.S3Key, payload.PropertyID)
	return nil
}

// NewNotificationPollTask creates the self-perpetuating poll task.
func NewNotificationPollTask() *asynq.Task {
	return asynq.NewTask(TypeNotificationPoll, nil)
}

// NewQueueDrainTask creates the self-perpetuating drain task.
func NewQueueDrainTask() *asynq.Task {
	return asynq.NewTask(TypeQueueDrain, nil)
}

// NewImageProcessTask creates an image processing task for a property photo.
func NewImageProcessTask(s3Key, propertyID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, PropertyID: propertyID})
	if err != nil {
		return nil, fmt.Errorf("marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload), nil
}
