package rabbitmq

import "enact/pkg/utilities"

type RabbimqConfigJson struct {
	User             string                         `json:"user"`
	Password         string                         `json:"password"`
	Host             string                         `json:"host"`
	Port             uint16                         `json:"port"`
	PublishersConfig []RabbitmqPublishersConfigJson `json:"publishers"`
	ConsumersConfig  []RabbitmqConsumerConfigJson   `json:"consumers"`
}

type RabbitmqConfig struct {
	User             string
	Password         string
	Host             string
	Port             uint16
	PublishersConfig []RabbitmqPublishersConfig
	ConsumersConfig  []RabbitmqConsumerConfig
}

func (rcj RabbimqConfigJson) ConvertToDomain() RabbitmqConfig {
	return RabbitmqConfig{
		User:     rcj.User,
		Password: rcj.Password,
		Host:     utilities.Ternary(rcj.Host == "", "rabbitmq", rcj.Host),
		Port:     utilities.Ternary(rcj.Port == 0, uint16(5672), rcj.Port),
		PublishersConfig: utilities.ConvertJsonArrayToDomain[
			RabbitmqPublishersConfigJson,
			RabbitmqPublishersConfig,
		](rcj.PublishersConfig),
		ConsumersConfig: utilities.ConvertJsonArrayToDomain[
			RabbitmqConsumerConfigJson,
			RabbitmqConsumerConfig,
		](rcj.ConsumersConfig),
	}
}

type RabbitmqPublishersConfigJson struct {
	PublisherAlias string `json:"publisher_alias"`
	Exchange       string `json:"exchange"`
	RoutingKey     string `json:"routing_key"`
}

type RabbitmqPublishersConfig struct {
	PublisherAlias PublisherAlias
	Exchange       string
	RoutingKey     string
}

func (rpcj RabbitmqPublishersConfigJson) ConvertToDomain() RabbitmqPublishersConfig {
	return RabbitmqPublishersConfig{
		PublisherAlias: PublisherAlias(rpcj.PublisherAlias),
		Exchange:       rpcj.Exchange,
		RoutingKey:     rpcj.RoutingKey,
	}
}

type RabbitmqConsumerConfigJson struct {
	ConsumerAlias string `json:"consumer_alias"`
	ConsumerTag   string `json:"consumer_tag"`
	QueueName     string `json:"queue_name"`
}

type RabbitmqConsumerConfig struct {
	ConsumerAlias ConsumerAlias
	ConsumerTag   string
	QueueName     string
}

func (rccj RabbitmqConsumerConfigJson) ConvertToDomain() RabbitmqConsumerConfig {
	return RabbitmqConsumerConfig{
		ConsumerAlias: ConsumerAlias(rccj.ConsumerAlias),
		ConsumerTag:   rccj.ConsumerTag,
		QueueName:     rccj.QueueName,
	}
}
