package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docscanner/internal/dto"
	"docscanner/internal/logger"
	"docscanner/internal/model"
	"docscanner/internal/repository"
	"docscanner/internal/service/pipeline"
	"docscanner/internal/service/websocket"

	"github.com/google/uuid"
)

// ScanResult is what the manager hands back for one upload.
type ScanResult struct {
	ScanID    string
	Output    *pipeline.Output
	Timestamp time.Time
}

type taskKind int

const (
	taskScan taskKind = iota
	taskDebug
)

type scanTask struct {
	ctx      context.Context
	kind     taskKind
	data     []byte
	filename string
	reply    chan taskReply
}

type taskReply struct {
	result  *ScanResult
	overlay []byte
	drawn   int
	err     error
}

// Manager owns one pipeline per worker and a bounded queue in front of them.
// Each pipeline is only ever used by its own worker goroutine.
type Manager struct {
	pipelines []*pipeline.Pipeline
	scanRepo  repository.ScanRepository
	hub       *websocket.HubService
	logger    *logger.Logger

	processingQueue chan scanTask
	numWorkers      int

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewManager starts one worker per pipeline. scanRepo and hub may be nil.
func NewManager(pipelines []*pipeline.Pipeline, queueSize int, scanRepo repository.ScanRepository, hub *websocket.HubService, logger *logger.Logger) *Manager {
	if queueSize < 0 {
		queueSize = 0
	}
	manager := &Manager{
		pipelines:       pipelines,
		scanRepo:        scanRepo,
		hub:             hub,
		logger:          logger,
		processingQueue: make(chan scanTask, queueSize),
		numWorkers:      len(pipelines),
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("Manager started with %d worker(s), queue size %d", manager.numWorkers, queueSize)
	return manager
}

// Scan queues an upload and waits for its result. A full queue fails
// immediately with model.ErrQueueFull.
func (m *Manager) Scan(ctx context.Context, data []byte, filename string) (*ScanResult, error) {
	reply, err := m.submit(ctx, scanTask{kind: taskScan, data: data, filename: filename})
	if err != nil {
		return nil, err
	}
	return reply.result, nil
}

// Debug queues a debug overlay request and waits for the PNG.
func (m *Manager) Debug(ctx context.Context, data []byte) ([]byte, int, error) {
	reply, err := m.submit(ctx, scanTask{kind: taskDebug, data: data})
	if err != nil {
		return nil, 0, err
	}
	return reply.overlay, reply.drawn, nil
}

// CanRedact reports whether the workers have a text engine attached.
func (m *Manager) CanRedact() bool {
	return len(m.pipelines) > 0 && m.pipelines[0].CanRedact()
}

func (m *Manager) submit(ctx context.Context, task scanTask) (taskReply, error) {
	task.ctx = ctx
	task.reply = make(chan taskReply, 1)

	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return taskReply{}, fmt.Errorf("%w: manager stopped", model.ErrQueueFull)
	}
	select {
	case m.processingQueue <- task:
		m.mu.RUnlock()
	default:
		m.mu.RUnlock()
		m.logger.Warning("Processing queue full, rejecting %s", task.filename)
		return taskReply{}, model.ErrQueueFull
	}

	select {
	case reply := <-task.reply:
		return reply, reply.err
	case <-ctx.Done():
		return taskReply{}, ctx.Err()
	}
}

// processingWorker drains the queue with its own pipeline.
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("Processing worker %d started", workerID)

	for task := range m.processingQueue {
		if task.ctx.Err() != nil {
			task.reply <- taskReply{err: task.ctx.Err()}
			continue
		}

		switch task.kind {
		case taskDebug:
			overlay, drawn, err := m.pipelines[workerID].Debug(task.data)
			task.reply <- taskReply{overlay: overlay, drawn: drawn, err: err}
		default:
			result, err := m.processScan(workerID, task.data, task.filename)
			task.reply <- taskReply{result: result, err: err}
		}
	}

	m.logger.Info("Processing worker %d stopped", workerID)
}

// processScan runs the pipeline, records the scan and notifies viewers.
func (m *Manager) processScan(workerID int, data []byte, filename string) (*ScanResult, error) {
	out, err := m.pipelines[workerID].Scan(data, filename)
	if err != nil {
		m.logger.Error("Worker %d failed to scan %s: %v", workerID, filename, err)
		return nil, err
	}

	result := &ScanResult{
		ScanID:    uuid.NewString(),
		Output:    out,
		Timestamp: time.Now(),
	}
	m.logger.Info("Scan %s (%s): %s %.4f, %d regions blurred", result.ScanID, filename,
		out.Classification.Label, out.Classification.Score, len(out.Report.Regions))

	m.record(result, filename, int64(len(data)))
	if m.hub != nil {
		m.hub.BroadcastEvent(dto.ScanEvent{
			ScanID:         result.ScanID,
			Filename:       filename,
			Classification: string(out.Classification.Label),
			Confidence:     out.Classification.Score,
			Regions:        RegionResults(out),
			Timestamp:      result.Timestamp,
		})
	}
	return result, nil
}

// record stores the scan and its regions. Recognized text is never stored.
func (m *Manager) record(result *ScanResult, filename string, size int64) {
	if m.scanRepo == nil {
		return
	}

	out := result.Output
	scan := &model.Scan{
		ScanID:         result.ScanID,
		Filename:       filename,
		Classification: string(out.Classification.Label),
		Confidence:     out.Classification.Score,
		Redacted:       len(out.Report.Regions) > 0,
		OutputFormat:   out.Format,
		FileSize:       size,
		Timestamp:      result.Timestamp,
	}

	regions := make([]model.Region, 0, len(out.Report.Regions))
	for _, r := range out.Report.Regions {
		regions = append(regions, model.Region{
			Kind:       string(r.Kind),
			XMin:       r.Region.XMin,
			YMin:       r.Region.YMin,
			XMax:       r.Region.XMax,
			YMax:       r.Region.YMax,
			Kernel:     r.Kernel,
			Confidence: r.Confidence,
		})
	}

	if _, err := m.scanRepo.InsertWithRegions(scan, regions); err != nil {
		m.logger.Error("Failed to record scan %s: %v", result.ScanID, err)
	}
}

// RegionResults converts the blurred regions of out for JSON responses.
func RegionResults(out *pipeline.Output) []dto.RegionResult {
	results := make([]dto.RegionResult, 0, len(out.Report.Regions))
	for _, r := range out.Report.Regions {
		results = append(results, dto.RegionResult{
			Kind:       string(r.Kind),
			XMin:       r.Region.XMin,
			YMin:       r.Region.YMin,
			XMax:       r.Region.XMax,
			YMax:       r.Region.YMax,
			Confidence: r.Confidence,
		})
	}
	return results
}

// GetWebsocketService returns the hub used for live scan events.
func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

// Stop drains the queue, waits for all workers and releases the pipelines.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.mu.Unlock()

	m.wg.Wait()
	for i, p := range m.pipelines {
		if err := p.Close(); err != nil {
			m.logger.Error("Failed to close pipeline %d: %v", i, err)
		}
	}
	m.logger.Info("All processing workers stopped")
}
