// Command lambda runs the suite behind API Gateway's HTTP API.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"

	"github.com/DoozHub/dooz-pm-suite/infrastructure/config"
	"github.com/DoozHub/dooz-pm-suite/infrastructure/di"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
)

// init does the cold-start work once per execution environment.
func init() {
	ctx := context.Background()

	cfg := config.MustLoad()

	var err error
	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	mux, ok := container.Router.(*chi.Mux)
	if !ok {
		log.Fatal("Router is not a chi.Mux")
	}
	chiLambda = chiadapter.NewV2(mux)
}

// Handler proxies one API Gateway v2 event through the router.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}
