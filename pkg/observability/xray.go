package observability

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// InstrumentHTTPClient wraps c so that outbound calls made under a Lambda
// invocation appear as X-Ray subsegments.
func InstrumentHTTPClient(c *http.Client) *http.Client {
	return xray.Client(c)
}

// InstrumentAWS records every AWS SDK call made with cfg as a subsegment
func InstrumentAWS(cfg *aws.Config) {
	awsv2.AWSV2Instrumentor(&cfg.APIOptions)
}
