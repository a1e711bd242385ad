package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pc = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sntp",
		Name:      "integration_mqtt_sample_count",
		Help:      "The number of samples published by the MQTT integration (per result).",
	}, []string{"result"})

	mqttc = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sntp",
		Name:      "integration_mqtt_connect_count",
		Help:      "The number of times the integration connected to the MQTT broker.",
	})

	mqttd = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sntp",
		Name:      "integration_mqtt_disconnect_count",
		Help:      "The number of times the integration disconnected from the MQTT broker.",
	})

	mqttr = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sntp",
		Name:      "integration_mqtt_reconnect_count",
		Help:      "The number of times the integration reconnected to the MQTT broker (this also increments the disconnect and connect counters).",
	})
)

func mqttSampleCounter(result string) prometheus.Counter {
	return pc.With(prometheus.Labels{"result": result})
}

func mqttConnectCounter() prometheus.Counter {
	return mqttc
}

func mqttDisconnectCounter() prometheus.Counter {
	return mqttd
}

func mqttReconnectCounter() prometheus.Counter {
	return mqttr
}
