// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// taskRecord is one V2 task moving through the lifecycle
// created → queued → executed → finished. The record is mutated only
// under the daemon lock; snapshots are taken for responses.
type taskRecord struct {
	ident       string
	commandName string
	params      json.RawMessage
	state       string
	finishType  string
	result      any
}

// taskView is the wire shape of a task state snapshot.
type taskView struct {
	TaskIdent   string `json:"task_ident"`
	CommandName string `json:"command_name"`
	State       string `json:"state"`
	FinishType  string `json:"finish_type"`
	Result      any    `json:"result,omitempty"`
}

// snapshot copies the record's current state. Caller holds the lock.
func (t *taskRecord) snapshot() taskView {
	return taskView{
		TaskIdent:   t.ident,
		CommandName: t.commandName,
		State:       t.state,
		FinishType:  t.finishType,
		Result:      t.result,
	}
}

// taskEnvelope is the V2 request shape.
type taskEnvelope struct {
	CommandName string          `json:"command_name"`
	Params      json.RawMessage `json:"params"`
}

// handleTaskRun executes a task synchronously: the response carries
// the task's final state, success or fail.
func (d *Daemon) handleTaskRun(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		d.writeJSON(w, http.StatusUnauthorized, taskView{State: "rejected"})
		return
	}
	task, ok := d.acceptTask(w, r)
	if !ok {
		return
	}

	d.executeTask(task)

	d.mu.Lock()
	view := task.snapshot()
	d.mu.Unlock()
	d.writeJSON(w, http.StatusOK, view)
}

// handleTaskCreate accepts a task and returns immediately; a
// background goroutine executes it. Acceptance is HTTP 201 with the
// assigned task identifier.
func (d *Daemon) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		d.writeJSON(w, http.StatusUnauthorized, taskView{State: "rejected"})
		return
	}
	task, ok := d.acceptTask(w, r)
	if !ok {
		return
	}

	go d.executeTask(task)

	d.mu.Lock()
	view := task.snapshot()
	d.mu.Unlock()
	d.writeJSON(w, http.StatusCreated, view)
}

// handleTaskResult reports a task's current state without waiting.
func (d *Daemon) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	if !d.authorized(r) {
		d.writeJSON(w, http.StatusUnauthorized, taskView{State: "rejected"})
		return
	}

	ident := r.URL.Query().Get("task_ident")
	d.mu.Lock()
	task, ok := d.tasks[ident]
	var view taskView
	if ok {
		view = task.snapshot()
	}
	d.mu.Unlock()

	if !ok {
		d.writeJSON(w, http.StatusNotFound, taskView{State: "unknown"})
		return
	}
	d.writeJSON(w, http.StatusOK, view)
}

// acceptTask decodes the envelope and records a new task in the
// created state. Returns ok=false after writing an error response.
func (d *Daemon) acceptTask(w http.ResponseWriter, r *http.Request) (*taskRecord, bool) {
	var request taskEnvelope
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		d.writeJSON(w, http.StatusBadRequest, taskView{State: "rejected"})
		return nil, false
	}
	if request.CommandName == "" {
		d.writeJSON(w, http.StatusBadRequest, taskView{State: "rejected"})
		return nil, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.taskSeq++
	task := &taskRecord{
		ident:       fmt.Sprintf("task-%d", d.taskSeq),
		commandName: request.CommandName,
		params:      request.Params,
		state:       "created",
	}
	d.tasks[task.ident] = task
	return task, true
}

// executeTask drives a task through the lifecycle to its terminal
// state. Sync and async delivery share this path, so identical
// command and parameters converge to identical results regardless of
// mode.
func (d *Daemon) executeTask(task *taskRecord) {
	d.mu.Lock()
	task.state = "queued"
	command, known := taskCommands[task.commandName]
	task.state = "executed"
	params := task.params
	d.mu.Unlock()

	var result any
	var err error
	if known {
		result, err = command(params)
	} else {
		err = fmt.Errorf("unknown command %q", task.commandName)
	}

	d.mu.Lock()
	task.state = "finished"
	if err != nil {
		task.finishType = "fail"
		task.result = map[string]any{"error": err.Error()}
	} else {
		task.finishType = "success"
		task.result = result
	}
	d.mu.Unlock()
}

// taskCommands maps dotted command names to their implementations.
type taskCommand func(params json.RawMessage) (any, error)

var taskCommands = map[string]taskCommand{
	"resource_agent.list_agents":        commandListAgents,
	"resource_agent.get_agent_metadata": commandAgentMetadata,
	"cluster.setup":                     commandClusterSetup,
}

// agents is the fixed resource-agent inventory the testbed exposes.
var agents = map[string]map[string]any{
	"ocf:heartbeat:Dummy": {
		"name":      "ocf:heartbeat:Dummy",
		"shortdesc": "Example stateless resource agent",
		"parameters": []map[string]any{
			{"name": "state", "required": false},
			{"name": "fake", "required": false},
		},
	},
	"ocf:heartbeat:IPaddr2": {
		"name":      "ocf:heartbeat:IPaddr2",
		"shortdesc": "Manages virtual IPv4 and IPv6 addresses",
		"parameters": []map[string]any{
			{"name": "ip", "required": true},
			{"name": "cidr_netmask", "required": false},
		},
	},
	"ocf:pacemaker:Stateful": {
		"name":      "ocf:pacemaker:Stateful",
		"shortdesc": "Example stateful resource agent",
		"parameters": []map[string]any{
			{"name": "state", "required": false},
		},
	},
}

// agentNames returns the inventory in sorted order; both the V1 list
// operation and the V2 list command serve this.
func agentNames() []string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func commandListAgents(json.RawMessage) (any, error) {
	return map[string]any{"agents": agentNames()}, nil
}

func commandAgentMetadata(params json.RawMessage) (any, error) {
	var request struct {
		AgentName string `json:"agent_name"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	metadata, ok := agents[request.AgentName]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", request.AgentName)
	}
	return metadata, nil
}

func commandClusterSetup(params json.RawMessage) (any, error) {
	var request struct {
		ClusterName string   `json:"cluster_name"`
		Nodes       []string `json:"nodes"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &request); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	if request.ClusterName == "" {
		return nil, fmt.Errorf("cluster_name is required")
	}
	if len(request.Nodes) == 0 {
		return nil, fmt.Errorf("at least one node is required")
	}
	return map[string]any{
		"cluster_name": request.ClusterName,
		"nodes":        request.Nodes,
	}, nil
}
