// file: websocket/cloudwatch.go
package websocket

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"shareform/logger"
)

// CloudWatchReporter pushes the relay's connection count to CloudWatch.
type CloudWatchReporter struct {
	client    cloudwatchiface.CloudWatchAPI
	namespace string
	relay     string
}

// NewCloudWatchReporter builds a reporter from the default AWS session chain.
func NewCloudWatchReporter(namespace, relayName string) (*CloudWatchReporter, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return NewCloudWatchReporterWithClient(cloudwatch.New(sess), namespace, relayName), nil
}

// NewCloudWatchReporterWithClient uses an existing client.
func NewCloudWatchReporterWithClient(client cloudwatchiface.CloudWatchAPI, namespace, relayName string) *CloudWatchReporter {
	return &CloudWatchReporter{client: client, namespace: namespace, relay: relayName}
}

// PublishConnections pushes the current WebSocket connection count. The call
// returns immediately; the hub must not wait on the network.
func (r *CloudWatchReporter) PublishConnections(count int) {
	go r.putMetric("RelayConnections", float64(count), cloudwatch.StandardUnitCount)
}

// putMetric failures are only logged.
func (r *CloudWatchReporter) putMetric(metricName string, value float64, unit string) {
	_, err := r.client.PutMetricData(&cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Dimensions: []*cloudwatch.Dimension{
					{
						Name:  aws.String("Relay"),
						Value: aws.String(r.relay),
					},
				},
				Timestamp: aws.Time(time.Now()),
				Value:     aws.Float64(value),
				Unit:      aws.String(unit),
			},
		},
	})
	if err != nil {
		logger.Error.Printf("[CloudWatchReporter.putMetric] CloudWatch metric failed (%s): %v", metricName, err)
	}
}
