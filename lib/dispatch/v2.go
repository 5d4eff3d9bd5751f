// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// TaskState is the daemon's view of one V2 task. The same shape is
// returned by the sync run endpoint (final state), the async create
// endpoint (acceptance state), and the result endpoint (current
// state).
type TaskState struct {
	// TaskIdent is the daemon-assigned task identifier.
	TaskIdent string `json:"task_ident"`

	// CommandName echoes the dotted command the task executes.
	CommandName string `json:"command_name"`

	// State is the lifecycle position: created, queued, executed, or
	// finished.
	State string `json:"state"`

	// FinishType is "" until the task finishes, then "success" or
	// "fail".
	FinishType string `json:"finish_type"`

	// Result is the command's result payload, valid once finished.
	Result json.RawMessage `json:"result,omitempty"`
}

// Finished reports whether the task has reached its terminal state.
func (t *TaskState) Finished() bool {
	return t.State == "finished"
}

// taskRequest is the V2 request envelope.
type taskRequest struct {
	CommandName string `json:"command_name"`
	Params      any    `json:"params"`
}

// RunTask executes a V2 command synchronously: the call blocks until
// the daemon finishes the task and returns its final state inline.
// A task that finishes with anything but finish_type "success" is a
// ContractError carrying the task's state for diagnosis.
func (c *Client) RunTask(ctx context.Context, transport Transport, auth AuthContext, commandName string, params any) (*TaskState, error) {
	task, _, err := c.taskCall(ctx, transport, auth, v2TaskRunPath, commandName, params)
	if err != nil {
		return nil, err
	}
	if !task.Finished() || task.FinishType != "success" {
		return task, c.taskContractError(transport, ModeSync, commandName, task)
	}
	return task, nil
}

// CreateTask submits a V2 command asynchronously: the call returns as
// soon as the daemon accepts the task. Acceptance means HTTP 201 and a
// non-empty task identifier; the result is observed out of band via
// [Client.TaskResult].
func (c *Client) CreateTask(ctx context.Context, transport Transport, auth AuthContext, commandName string, params any) (*TaskState, error) {
	task, status, err := c.taskCall(ctx, transport, auth, v2TaskCreatePath, commandName, params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated || task.TaskIdent == "" {
		return task, c.taskContractError(transport, ModeAsync, commandName, task)
	}
	return task, nil
}

// TaskResult fetches the current state of a previously created task.
// It does not wait: callers observing an async task poll until
// Finished reports true.
func (c *Client) TaskResult(ctx context.Context, transport Transport, auth AuthContext, taskIdent string) (*TaskState, error) {
	if err := checkAuth(transport, auth); err != nil {
		return nil, err
	}

	query := url.Values{"task_ident": {taskIdent}}
	_, body, err := c.do(ctx, transport, auth, http.MethodGet,
		v2TaskResultPath+"?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}

	task := &TaskState{}
	if err := json.Unmarshal(body, task); err != nil {
		return nil, fmt.Errorf("v2 task result for %q: decoding %q: %w", taskIdent, excerpt(body), err)
	}
	if task.TaskIdent == "" {
		return task, &ContractError{
			Generation: GenerationV2,
			Transport:  transport,
			Mode:       ModeAsync,
			Operation:  taskIdent,
			Outcome:    &Outcome{Status: task.State, Raw: body},
		}
	}
	return task, nil
}

// taskCall posts a task envelope to one of the V2 endpoints and
// decodes the task state.
func (c *Client) taskCall(ctx context.Context, transport Transport, auth AuthContext, path, commandName string, params any) (*TaskState, int, error) {
	if err := checkAuth(transport, auth); err != nil {
		return nil, 0, err
	}
	if params == nil {
		params = map[string]any{}
	}

	encoded, err := json.Marshal(taskRequest{CommandName: commandName, Params: params})
	if err != nil {
		return nil, 0, fmt.Errorf("encoding v2 envelope for %q: %w", commandName, err)
	}

	status, body, err := c.do(ctx, transport, auth, http.MethodPost, path, "application/json", encoded)
	if err != nil {
		return nil, 0, err
	}

	task := &TaskState{}
	if err := json.Unmarshal(body, task); err != nil {
		return nil, 0, fmt.Errorf("v2 call %q: decoding %q: %w", commandName, excerpt(body), err)
	}
	return task, status, nil
}

// taskContractError builds the ContractError for a failed V2 call,
// folding the task's state into an outcome so reports show it.
func (c *Client) taskContractError(transport Transport, mode Mode, commandName string, task *TaskState) error {
	status := task.FinishType
	if status == "" {
		status = task.State
	}
	raw, _ := json.Marshal(task)
	return &ContractError{
		Generation: GenerationV2,
		Transport:  transport,
		Mode:       mode,
		Operation:  commandName,
		Outcome: &Outcome{
			Status: status,
			Data:   task.Result,
			Raw:    raw,
		},
	}
}
