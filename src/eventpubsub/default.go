package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

var bus EventBus.Bus

func Init() {
	bus = EventBus.New()
}

func Publish(publisherName string, topic string, event interface{}) {
	log.Debugf("%s published to topic %s", publisherName, topic)
	bus.Publish(topic, event)
}

func Subscribe(subscriberName string, topic string, callbackFn interface{}) error {
	if err := bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		return err
	}

	log.Infof("%s subscribed to topic %s", subscriberName, topic)
	return nil
}

func Unsubscribe(topic string, callbackFn interface{}) error {
	return bus.Unsubscribe(topic, callbackFn)
}

// WaitAsync blocks until every async subscriber has drained. Used on
// shutdown so recommendations published by the last tasks are not lost.
func WaitAsync() {
	bus.WaitAsync()
}
