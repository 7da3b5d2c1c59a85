/*
Package errors provides semantic error types for the docstore library.

The package defines the failure taxonomy of the repository layer with specific
types that can be checked using the standard errors.Is() function or the
provided helper functions.

Common Errors:

	var (
	    ErrNotFound             = errors.New("resource not found")
	    ErrAlreadyExists        = errors.New("resource already exists")
	    ErrInvalidInput         = errors.New("invalid input")
	    ErrConditionFailed      = errors.New("condition check failed")
	    ErrInvalidConfiguration = errors.New("invalid configuration")
	    ErrUnknownEndpoint      = errors.New("unknown endpoint")
	    ErrWriteFailure         = errors.New("write failure")
	    ErrTransportFailure     = errors.New("transport failure")
	)

Usage:

	traffic, err := repo.GetDocument(ctx, id)
	if err != nil {
	    if errors.IsNotFound(err) {
	        return nil, fmt.Errorf("request %s was never recorded", id)
	    }
	    return nil, err
	}

TransportFailure is the only class the repository retries, and only for reads,
query pages and get-or-create. UnknownEndpoint is raised before any call reaches
the store and is never retried.
*/
package errors
