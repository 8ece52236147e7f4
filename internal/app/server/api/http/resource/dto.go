package resource

type listOutput[D any] struct {
	Body []D
}

type itemInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Resource identifier"`
}

type itemOutput[D any] struct {
	Body D
}

type createInput[D any] struct {
	Body D
}

type updateInput[D any] struct {
	ID   int64 `path:"id" minimum:"1" doc:"Resource identifier"`
	Body D
}
