package domain

import "github.com/berfenger/mercury2mqtt/pkg/mercury236"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_METER        = "meter"
	ACTOR_ID_POLL         = "poll"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// MeterInfo describes the polled device as far as the bridge knows it.
// The protocol has no identification read, so it comes from configuration.
type MeterInfo struct {
	Model      string   `json:"model"`
	Port       string   `json:"port"`
	Address    uint8    `json:"address"`
	Parameters []string `json:"parameters"`
}

type GetMeterInfoRequest struct {
	ActorRequestMixIn
}

type GetMeterInfoResponse struct {
	ActorResponseMixIn
	Info MeterInfo
}

// PollMeterRequest asks the meter actor to run one full pass over the catalogue.
type PollMeterRequest struct {
	ActorRequestMixIn
}

type PollMeterResponse struct {
	ActorResponseMixIn
	Snapshot mercury236.Snapshot
	Report   mercury236.PassReport
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot mercury236.Snapshot
	// LastReport is nil until the first pass completes.
	LastReport *mercury236.PassReport
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
